package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIRequestError indicates the remote API rejected or failed a request.
// Status carries the HTTP status code so callers can distinguish a missing
// resource (404) from other failure classes.
type APIRequestError struct {
	Status  int
	Message string
	Body    string
}

func NewAPIRequestError(status int, message string, body string) *APIRequestError {
	return &APIRequestError{Status: status, Message: message, Body: body}
}

func (e *APIRequestError) Error() string {
	return e.Message
}

// IsAPIRequestError checks if the error is an APIRequestError.
func IsAPIRequestError(err error) bool {
	var e *APIRequestError
	return errors.As(err, &e)
}

// IsNotFound checks if the error is an APIRequestError with HTTP status 404.
func IsNotFound(err error) bool {
	var e *APIRequestError
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// ConfigError indicates a malformed or incomplete declarative configuration.
type ConfigError struct {
	Reason string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// UnsupportedTestTypeError indicates a test type no registry entry exists for.
type UnsupportedTestTypeError struct {
	Type      string
	Supported []string
}

func NewUnsupportedTestTypeError(testType string, supported []string) *UnsupportedTestTypeError {
	s := make([]string, len(supported))
	copy(s, supported)
	sort.Strings(s)
	return &UnsupportedTestTypeError{Type: testType, Supported: s}
}

func (e *UnsupportedTestTypeError) Error() string {
	return fmt.Sprintf("unsupported test type: %s (supported types: %s)", e.Type, strings.Join(e.Supported, ", "))
}

func IsUnsupportedTestTypeError(err error) bool {
	var e *UnsupportedTestTypeError
	return errors.As(err, &e)
}

// InvalidTestParameterError indicates a test constructor rejected a parameter
// value, e.g. more than one target for a single-target type or an HTTP
// timeout below the protocol minimum.
type InvalidTestParameterError struct {
	TestType  string
	Parameter string
	Reason    string
}

func NewInvalidTestParameterError(testType, parameter, format string, args ...any) *InvalidTestParameterError {
	return &InvalidTestParameterError{
		TestType:  testType,
		Parameter: parameter,
		Reason:    fmt.Sprintf(format, args...),
	}
}

func (e *InvalidTestParameterError) Error() string {
	return fmt.Sprintf("%s test: invalid '%s': %s", e.TestType, e.Parameter, e.Reason)
}

func IsInvalidTestParameterError(err error) bool {
	var e *InvalidTestParameterError
	return errors.As(err, &e)
}

// UndeployedTestError indicates an operation requiring a server-assigned test
// id was attempted on a test that has not been created remotely.
type UndeployedTestError struct {
	Name string
}

func NewUndeployedTestError(name string) *UndeployedTestError {
	return &UndeployedTestError{Name: name}
}

func (e *UndeployedTestError) Error() string {
	return fmt.Sprintf("test '%s' has not been deployed yet (id=0)", e.Name)
}

func IsUndeployedTestError(err error) bool {
	var e *UndeployedTestError
	return errors.As(err, &e)
}

// CredentialsError indicates authentication material could not be resolved.
type CredentialsError struct {
	Missing []string
}

func NewCredentialsError(missing ...string) *CredentialsError {
	return &CredentialsError{Missing: missing}
}

func (e *CredentialsError) Error() string {
	if len(e.Missing) == 0 {
		return "credentials not available"
	}
	return fmt.Sprintf("credentials not available: missing %s", strings.Join(e.Missing, ", "))
}

func IsCredentialsError(err error) bool {
	var e *CredentialsError
	return errors.As(err, &e)
}

// MatchRuleError indicates an invalid matcher rule specification.
type MatchRuleError struct {
	Rule   any
	Reason string
}

func NewMatchRuleError(rule any, reason string) *MatchRuleError {
	return &MatchRuleError{Rule: rule, Reason: reason}
}

func (e *MatchRuleError) Error() string {
	return fmt.Sprintf("invalid match specification: %v (%s)", e.Rule, e.Reason)
}

func IsMatchRuleError(err error) bool {
	var e *MatchRuleError
	return errors.As(err, &e)
}
