package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/config"
	"github.com/cbout22/repo-import/internal/resolver"
)

// newEnvCmd creates the `env` command.
// Usage: rimport env <text...>
func newEnvCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env <text...>",
		Short: "Print the compute environment image for a URL or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			runEnv(cmd.OutOrStdout(), s.Images, strings.Join(args, " "))
			return nil
		},
	}
}

func runEnv(out io.Writer, images config.ImageSettings, text string) {
	fmt.Fprintln(out, resolver.DeriveEnvironment(text, images))
}
