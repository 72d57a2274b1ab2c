package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/pollbuild/internal/config"
)

// configView is the YAML shape of the effective configuration. Durations
// are rendered as strings so the output can be used as a config file.
type configView struct {
	LogLevel     string `yaml:"log-level"`
	LogFormat    string `yaml:"log-format"`
	NoColor      bool   `yaml:"no-color"`
	Quiet        bool   `yaml:"quiet"`
	Command      string `yaml:"command"`
	Interval     string `yaml:"interval"`
	OnMissing    string `yaml:"on-missing"`
	Separator    string `yaml:"separator"`
	Dir          string `yaml:"dir,omitempty"`
	BuildTimeout string `yaml:"build-timeout"`
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration pollbuild would run with, after merging the
config file, POLLBUILD_* environment variables and flags. The output is
valid YAML and can be saved as .pollbuild.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			out, err := yaml.Marshal(configView{
				LogLevel:     cfg.LogLevel,
				LogFormat:    cfg.LogFormat,
				NoColor:      cfg.NoColor,
				Quiet:        cfg.Quiet,
				Command:      cfg.Command,
				Interval:     cfg.Interval.String(),
				OnMissing:    cfg.OnMissing,
				Separator:    cfg.Separator,
				Dir:          cfg.Dir,
				BuildTimeout: cfg.BuildTimeout.String(),
			})
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			if cfg.ConfigFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", cfg.ConfigFile)
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	return cmd
}
