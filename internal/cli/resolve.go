package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/auth"
	"github.com/cbout22/repo-import/internal/config"
	"github.com/cbout22/repo-import/internal/resolver"
)

// newResolveCmd creates the `resolve` command.
// Usage: rimport resolve <url> [--branch <ref>]
func newResolveCmd(opts *globalOptions) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Show the archive URL and folder name a source resolves to",
		Long: heredoc.Doc(`
			Resolves a notebook, GitHub or GitLab URL without downloading anything.
			GitHub URLs without /tree/<ref> cost one API call to find the default branch.

			Example:
			  rimport resolve https://github.com/acme/demo/tree/dev
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			res, err := newResolver(s)
			if err != nil {
				return err
			}
			return runResolveWith(cmd.Context(), cmd.OutOrStdout(), res, s.Images, args[0], branch)
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch or tag for GitLab sources")

	return cmd
}

// newResolver builds a Resolver with an authenticated client. The lookup
// timeout comes from s.
func newResolver(s *config.Settings) (*resolver.Resolver, error) {
	client, err := auth.NewHTTPClient()
	if err != nil {
		return nil, err
	}
	return resolver.New(client, s), nil
}

// runResolveWith is the testable core of the resolve command.
func runResolveWith(ctx context.Context, out io.Writer, res resolver.ArchiveResolver, images config.ImageSettings, raw, branch string) error {
	src, err := res.Classify(raw, branch)
	if err != nil {
		return err
	}

	a, err := res.Resolve(ctx, src)
	if err != nil {
		return err
	}

	ref := a.Ref
	if ref == "" {
		ref = "-"
	}
	fmt.Fprintf(out, "🔎 %s\n", raw)
	fmt.Fprintf(out, "  kind:        %s\n", src.Kind)
	fmt.Fprintf(out, "  ref:         %s\n", ref)
	fmt.Fprintf(out, "  folder:      %s\n", a.FolderName)
	fmt.Fprintf(out, "  archive:     %s\n", a.ArchiveURL)
	fmt.Fprintf(out, "  environment: %s\n", resolver.DeriveEnvironment(raw, images))
	return nil
}
