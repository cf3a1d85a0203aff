package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/config"
	"github.com/cbout22/repo-import/internal/storage"
)

// newConfigCmd creates the `config` command group.
func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the settings file",
	}
	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	return cmd
}

// newConfigInitCmd creates the `config init` command.
// Usage: rimport config init [--force]
func newConfigInitCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings to the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.SettingsPath(opts.configPath)
			return runConfigInitWith(cmd.OutOrStdout(), &storage.OSFileWriter{}, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")

	return cmd
}

// newConfigShowCmd creates the `config show` command.
func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			return s.Encode(cmd.OutOrStdout())
		},
	}
}

// runConfigInitWith is the testable core of `config init`.
func runConfigInitWith(out io.Writer, fs storage.FileWriter, path string, force bool) error {
	if fs.Exists(path) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultSettings().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Wrote default settings to %s\n", path)
	return nil
}
