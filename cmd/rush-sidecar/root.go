package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rushsh/rush/internal/config"
	"github.com/rushsh/rush/internal/env"
	"github.com/rushsh/rush/internal/logging"
	"github.com/rushsh/rush/internal/sidecar"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// NewRootCmd creates the rush-sidecar command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rush-sidecar",
		Short: "Write and inspect rush plugin sidecars",
		Long: `rush-sidecar writes the <name>.metadata file that makes rush discover a
plugin, and decodes existing sidecars for inspection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	return cmd
}

// setupLogging loads configuration with the persistent flags merged last.
func setupLogging(cmd *cobra.Command) error {
	dirs := env.Defaults().Config.Paths()
	if sp, err := env.Resolve(); err == nil {
		dirs = sp.Config.Paths()
	}

	cfg, err := config.Load(dirs, config.WithFlags(cmd.Flags(), flagKeys))
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.Options{
		Service: "rush-sidecar",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

func newEncodeCmd() *cobra.Command {
	var name, file, dir string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write <dir>/<name>.metadata pointing at a plugin file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := sidecar.WriteFile(dir, name, file)
			if err != nil {
				return err
			}
			slog.Debug("sidecar written", "path", path, "plugin", name, "file", file)
			cmd.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "command name the plugin registers as")
	cmd.Flags().StringVar(&file, "file", "", "plugin file name, relative to the sidecar's directory")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the sidecar into")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode PATH",
		Short: "Print the contents of a sidecar as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := sidecar.ReadFile(args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(meta); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
