package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yqhp/quality-gate/internal/config"
	"yqhp/quality-gate/internal/reporter"
)

const redacted = "<redacted>"

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the service configuration",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newConfigSchemaCmd(), newConfigShowCmd(g))
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print every configuration key with its default and environment variable",
		Args:  cobra.NoArgs,
		// the schema does not depend on the loaded config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := reporter.NewDefaultRegistry()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(config.GetSchema())
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}

			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			types := make([]string, 0)
			for _, t := range registry.ListTypes() {
				types = append(types, string(t))
			}
			fmt.Fprintf(out, "reporter_types: [%s]\n", strings.Join(types, ", "))
			return nil
		},
	}
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Short:   "Print the effective configuration after file, environment and --set overrides",
		Example: `  quality-gate config show --config config.yaml --set limits.error_rate=5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg.Clone()
			if cfg.Platform.Token != "" {
				cfg.Platform.Token = redacted
			}
			if cfg.Server.APIKey != "" {
				cfg.Server.APIKey = redacted
			}
			data, err := cfg.Serialize()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
