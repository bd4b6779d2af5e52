// Package errors provides custom error types for synthctl.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping.
//
// # Error Types Overview
//
//	┌───────────────────────────┬──────────────────────────────────────────────┐
//	│ Error Type                │ Description                                  │
//	├───────────────────────────┼──────────────────────────────────────────────┤
//	│ APIRequestError           │ Remote API rejected or failed a request      │
//	│ ConfigError               │ Malformed declarative test configuration     │
//	│ UnsupportedTestTypeError  │ Test type without a registry entry           │
//	│ InvalidTestParameterError │ Constructor rejected a parameter value       │
//	│ UndeployedTestError       │ Operation needs a server-assigned test id    │
//	│ CredentialsError          │ Authentication material missing              │
//	│ MatchRuleError            │ Invalid matcher rule specification           │
//	└───────────────────────────┴──────────────────────────────────────────────┘
//
// # APIRequestError
//
// Carries the HTTP status code and raw response body of a failed API request
// so callers can distinguish a missing resource from other failure classes.
//
// Constructor:
//   - NewAPIRequestError(status int, message, body string)
//
// Usage:
//
//	if errors.IsNotFound(err) {
//	    // 404: render "<kind> <id> does not exist"
//	}
//	if errors.IsAPIRequestError(err) {
//	    // any remote failure, including 404
//	}
//
// # ConfigError
//
// Indicates a malformed or incomplete declarative test configuration, e.g. a
// missing mandatory section or an ambiguous selection directive.
//
// Constructor:
//   - NewConfigError(format string, args ...any)
//
// # UnsupportedTestTypeError
//
// Indicates a test type no registry entry exists for. Supported lists the
// known types in sorted order for the user-facing message.
//
// Constructor:
//   - NewUnsupportedTestTypeError(testType string, supported []string)
//
// # InvalidTestParameterError
//
// Indicates a test constructor rejected a parameter value, e.g. more than one
// target handed to a single-target type or an HTTP timeout below the protocol
// minimum.
//
// Constructor:
//   - NewInvalidTestParameterError(testType, parameter, format string, args ...any)
//
// # UndeployedTestError
//
// Indicates an operation requiring a server-assigned test id was attempted on
// a test that has not been created remotely (its id still holds the "0"
// sentinel).
//
// Constructor:
//   - NewUndeployedTestError(name string)
//
// # CredentialsError
//
// Indicates authentication material could not be resolved from flags, the
// environment or the credential profile. Missing names what was looked for.
//
// Constructor:
//   - NewCredentialsError(missing ...string)
//
// # MatchRuleError
//
// Indicates an invalid matcher rule specification, e.g. a combinator whose
// child list is not a list or a rule element that is not a map.
//
// Constructor:
//   - NewMatchRuleError(rule any, reason string)
//
// # Type Checking Pattern
//
// All error types provide Is* helper functions that use errors.As for proper
// error chain unwrapping:
//
//	func IsConfigError(err error) bool {
//	    var e *ConfigError
//	    return errors.As(err, &e)
//	}
//
// This allows checking wrapped errors:
//
//	wrapped := fmt.Errorf("building test failed: %w", errors.NewConfigError("no targets"))
//	errors.IsConfigError(wrapped) // returns true
package errors
