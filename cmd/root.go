// Package cmd implements the synthctl command tree: test and agent
// management against the NetSonde synthetics API.
package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netsonde/synthctl/internal/config"
)

// envPrefix scopes the environment variables bound to flags, e.g.
// SYNTHCTL_PROFILE, SYNTHCTL_API_URL.
const envPrefix = "SYNTHCTL"

// errReported marks a failure that has already been printed through the
// printer. Execute maps it to a nonzero exit without repeating it.
var errReported = stderrors.New("command failed")

// fail prints a red FAILED line to the error stream and returns the
// reported-failure sentinel.
func (rt *runtime) fail(format string, args ...any) error {
	rt.Printer().Failf(format, args...)
	return errReported
}

// setupViperForEnvVars configures viper to read environment variables with the given prefix
func setupViperForEnvVars(envPrefix string) {
	viper.Reset()
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// setupLogging installs the global logger with a console encoder at the
// requested level.
func setupLogging(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// NewRootCommand assembles the synthctl command tree around a shared
// configuration instance. Persistent flags write into cfg directly;
// PresetRequiredFlags fills flags the command line left untouched from the
// environment before any command runs.
func NewRootCommand(cfg *config.Configuration, rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synthctl",
		Short: "Manage NetSonde synthetic tests and agents",
		Long: `synthctl creates, inspects and runs NetSonde synthetic tests
(ping, traceroute, DNS and HTTP probes executed by distributed agents)
and manages the agents that run them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupViperForEnvVars(envPrefix)
			cobraflags.PresetRequiredFlags(envPrefix, make(map[*pflag.Flag]bool), cmd)
			if err := setupLogging(cfg.Log.Level); err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfg.Auth.Profile, "profile", "p", cfg.Auth.Profile, "Credential profile to use")
	flags.StringVar(&cfg.API.URL, "api-url", cfg.API.URL, "Base URL of the NetSonde API (default: public endpoint)")
	flags.StringVar(&cfg.API.Proxy, "proxy", cfg.API.Proxy, "Proxy to use for API requests")
	flags.StringVar(&cfg.API.CAFile, "ca-file", cfg.API.CAFile, "PEM bundle extending the API trust store")
	flags.StringVarP(&cfg.Output.Format, "output", "o", cfg.Output.Format, "Output format: table, yaml, json or id")
	flags.BoolVar(&cfg.Output.Color, "color", cfg.Output.Color, "Colorize output")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")

	cmd.AddCommand(newTestCommand(rt))
	cmd.AddCommand(newAgentCommand(rt))
	return cmd
}

// Execute runs the command tree and exits nonzero on failure. Failures
// raised through the runtime have been printed already; anything else
// (usage errors, unvalidated configuration) is reported here.
func Execute() {
	cfg := config.NewConfiguration()
	rt := newRuntime(cfg)
	root := NewRootCommand(cfg, rt)
	if err := root.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			rt.Printer().Failf("%v", err)
		}
		os.Exit(1)
	}
}
