// Package config carries the CLI configuration: API endpoint, credentials,
// output and logging preferences. Values resolve in flag > environment >
// profile > default order.
package config

import (
	stderrors "errors"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/netsonde/synthctl/pkg/errors"
)

// Environment variables honored by the resolver.
const (
	EnvAuthEmail = "SYNTHCTL_AUTH_EMAIL"
	EnvAuthToken = "SYNTHCTL_AUTH_TOKEN"
	EnvURL       = "SYNTHCTL_URL"
	EnvProxy     = "SYNTHCTL_PROXY"
	EnvHome      = "SYNTHCTL_HOME"
	EnvCfgFile   = "SYNTHCTL_CFG_FILE"
)

type API struct {
	// URL is the portal or API address; empty selects the public endpoint.
	URL     string
	Proxy   string
	CAFile  string
	Timeout time.Duration `default:"30s"`
}

type Auth struct {
	Email   string `validate:"omitempty,email"`
	Token   string
	Profile string `default:"default"`
}

type Output struct {
	Format string `default:"table" validate:"oneof=table yaml json id"`
	Color  bool   `default:"true"`
}

type Log struct {
	Level string `default:"info" validate:"oneof=debug info warn error"`
}

type Configuration struct {
	API    API
	Auth   Auth
	Output Output
	Log    Log
}

// NewConfiguration returns a configuration populated with defaults.
func NewConfiguration() *Configuration {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		// only unparsable default tags fail, a programming error
		panic(err)
	}
	return cfg
}

var validate = validator.New()

// Validate checks the field constraints (output format, log level, email
// shape).
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigError("invalid configuration: %v", err)
	}
	return nil
}

// Resolve fills the credential and endpoint fields that flags left empty
// from the environment and the selected profile, then validates the
// result. A profile other than the default must exist; a missing default
// profile is tolerated as long as the environment covers the credentials.
func (c *Configuration) Resolve(store *Store) error {
	if c.Auth.Email == "" {
		c.Auth.Email = os.Getenv(EnvAuthEmail)
	}
	if c.Auth.Token == "" {
		c.Auth.Token = os.Getenv(EnvAuthToken)
	}
	if c.API.URL == "" {
		c.API.URL = os.Getenv(EnvURL)
	}
	if c.API.Proxy == "" {
		c.API.Proxy = os.Getenv(EnvProxy)
	}

	profile, err := store.Load(c.Auth.Profile)
	switch {
	case err == nil:
		if c.Auth.Email == "" {
			c.Auth.Email = profile.Email
		}
		if c.Auth.Token == "" {
			c.Auth.Token = profile.token()
		}
		if c.API.URL == "" {
			c.API.URL = profile.URL
		}
		if c.API.Proxy == "" {
			c.API.Proxy = profile.Proxy
		}
	case stderrors.Is(err, ErrProfileNotFound):
		if c.Auth.Profile != DefaultProfile {
			return err
		}
	default:
		return err
	}

	var missing []string
	if c.Auth.Email == "" {
		missing = append(missing, "email")
	}
	if c.Auth.Token == "" {
		missing = append(missing, "api token")
	}
	if len(missing) > 0 {
		return errors.NewCredentialsError(missing...)
	}
	return c.Validate()
}
