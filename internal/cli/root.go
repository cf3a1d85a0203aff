package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

// settings loads the configuration selected by --config.
func (o *globalOptions) settings() (*config.Settings, error) {
	path := config.SettingsPath(o.configPath)
	s, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Msg("settings loaded")
	return s, nil
}

// NewRootCmd creates the top-level `rimport` command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rimport",
		Short: "Import notebooks and GitHub/GitLab repositories into a working directory",
		Long: heredoc.Doc(`
			rimport resolves notebook, GitHub and GitLab URLs into downloadable
			archives, picks a free folder name and unpacks the archive into it.
			Imports are recorded in .rimport.lock so they can be checked and removed.
		`),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Settings file (default ./rimport.toml or $XDG_CONFIG_HOME/rimport/config.toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newResolveCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newScriptCmd(opts))
	root.AddCommand(newEnvCmd(opts))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newConfigCmd(opts))

	return root
}

// setupLogging installs a console zerolog logger on w.
func setupLogging(w io.Writer, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
