package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"igloogo/internal/config"
)

type rootOptions struct {
	configPath string
	overrides  config.Config
	enums      []string
	selection  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "igloo",
		Short: "Read and write Igloo entities from the command line",
		Example: `  igloo --config igloo.json get floatValue 5c1a name value unitOfMeasurement
  igloo --endpoint https://api.example.com/graphql --token $TOKEN set floatValue 5c1a value 21.5
  igloo mutate createFloatValue deviceId=d1 permission=READ_WRITE --enum permission --select "{id}"`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.StringVar(&opts.overrides.Endpoint, "endpoint", "", "GraphQL HTTP endpoint")
	flags.StringVar(&opts.overrides.WSEndpoint, "ws-endpoint", "", "GraphQL WebSocket endpoint")
	flags.StringVar(&opts.overrides.Token, "token", "", "bearer token")
	flags.StringVar((*string)(&opts.overrides.Transport), "transport", "", "transport: http or ws")
	flags.StringVar((*string)(&opts.overrides.Mode), "mode", "", "read mode: async or sync")
	flags.IntVar(&opts.overrides.BatchWindow, "batch-window", 0, "batch window in milliseconds")
	flags.IntVar(&opts.overrides.MaxBatchFields, "max-batch-fields", 0, "flush a batch early at this many fields (0 = unlimited)")
	flags.IntVar(&opts.overrides.RequestTimeout, "request-timeout", 0, "request timeout in milliseconds")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newGetCommand(opts),
		newSetCommand(opts),
		newMutateCommand(opts),
	)
	return root
}

// loadConfig reads the config file if given and applies the flags that were
// set explicitly on top of it
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configPath != "" {
		fc, err := config.ReadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fc
	}

	o := opts.overrides
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "endpoint":
			cfg.Endpoint = o.Endpoint
		case "ws-endpoint":
			cfg.WSEndpoint = o.WSEndpoint
		case "token":
			cfg.Token = o.Token
		case "transport":
			cfg.Transport = o.Transport
		case "mode":
			cfg.Mode = o.Mode
		case "batch-window":
			cfg.BatchWindow = o.BatchWindow
		case "max-batch-fields":
			cfg.MaxBatchFields = o.MaxBatchFields
		case "request-timeout":
			cfg.RequestTimeout = o.RequestTimeout
		case "log-level":
			cfg.LogLevel = o.LogLevel
		}
	})

	if err := config.Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// stdout carries command output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
