package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"igloogo/internal/batcher"
	"igloogo/internal/client"
	"igloogo/internal/graphql"
)

// withClient loads the configuration, builds a client and runs fn with a
// context cancelled on SIGINT or SIGTERM
func withClient(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	err = fn(ctx, c)

	if stats, ok := c.Stats(); ok {
		logger.Debug().
			Uint64("queries", stats.Queries).
			Uint64("mutations", stats.Mutations).
			Uint64("failures", stats.Failures).
			Msg("transport stats")
	}
	return err
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id> <field>...",
		Short: "Read fields of an entity",
		Long: "Read fields of an entity. In async mode all fields are requested " +
			"together and sent as one query.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				p, err := c.Entity(args[0], args[1])
				if err != nil {
					return err
				}

				fields := args[2:]
				futures := make([]*batcher.Future, len(fields))
				for i, field := range fields {
					futures[i] = p.Load(ctx, field)
				}

				out := make(map[string]json.RawMessage, len(fields))
				for i, f := range futures {
					value, err := f.Await(ctx)
					if err != nil {
						return fmt.Errorf("%s: %w", fields[i], err)
					}
					out[fields[i]] = value
				}
				return printJSON(out)
			})
		},
	}
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var enum bool
	cmd := &cobra.Command{
		Use:   "set <type> <id> <field> <value>",
		Short: "Write one field of an entity",
		Long: "Write one field of an entity. The value is parsed as a JSON literal " +
			"and falls back to a plain string.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[3], enum)
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				return c.Set(ctx, args[0], args[1], args[2], value)
			})
		},
	}
	cmd.Flags().BoolVar(&enum, "enum", false, "send the value as a bare enum")
	return cmd
}

func newMutateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <name> [arg=value]...",
		Short: "Send a root mutation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mutationArgs, err := parseArgs(args[1:], opts.enums)
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client) error {
				data, err := c.Mutate(ctx, args[0], opts.selection, mutationArgs...)
				if err != nil {
					return err
				}
				return printJSON(data)
			})
		},
	}
	cmd.Flags().StringSliceVar(&opts.enums, "enum", nil, "argument names sent as bare enums")
	cmd.Flags().StringVar(&opts.selection, "select", "", `selection set of the result, e.g. "{id}"`)
	return cmd
}

func parseArgs(raw []string, enums []string) ([]graphql.Arg, error) {
	isEnum := make(map[string]bool, len(enums))
	for _, name := range enums {
		isEnum[name] = true
	}

	args := make([]graphql.Arg, 0, len(raw))
	for _, kv := range raw {
		name, text, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q is not in name=value form", kv)
		}
		value, err := parseValue(text, isEnum[name])
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		args = append(args, graphql.Arg{Name: name, Value: value})
	}
	return args, nil
}

// parseValue turns a command line value into an encodable Go value
func parseValue(text string, enum bool) (interface{}, error) {
	if enum {
		return graphql.Enum(text), nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return text, nil
	}
	if _, ok := v.(map[string]interface{}); ok {
		return nil, fmt.Errorf("object values are not supported")
	}
	return v, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
