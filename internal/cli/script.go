package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/bootstrap"
	"github.com/cbout22/repo-import/internal/resolver"
	"github.com/cbout22/repo-import/internal/storage"
)

// newScriptCmd creates the `script` command.
// Usage: rimport script <url> [--branch <ref>] [--mount DIR] [--root DIR] [--output FILE]
func newScriptCmd(opts *globalOptions) *cobra.Command {
	var branch, mount, rootDir, output string

	cmd := &cobra.Command{
		Use:   "script <url>",
		Short: "Print the shell script that imports a source inside a session",
		Long: heredoc.Doc(`
			Resolves the source and prints a /bin/sh script that downloads and
			unpacks it into <mount>/<folder>. The folder name is deduplicated
			against the entries of --root, which should mirror the session mount.

			Example:
			  rimport script https://gitlab.com/group/proj --branch main | sh
			  rimport script https://github.com/acme/demo -o bootstrap.sh
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			if mount == "" {
				mount = s.Download.Mount
			}
			res, err := newResolver(s)
			if err != nil {
				return err
			}
			return runScriptWith(cmd.Context(), cmd.OutOrStdout(), res, &storage.OSFileWriter{}, rootDir, args[0], branch, mount, output)
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch or tag for GitLab sources")
	cmd.Flags().StringVar(&mount, "mount", "", "Session working directory (default from settings)")
	cmd.Flags().StringVar(&rootDir, "root", ".", "Directory whose entries are treated as taken folder names")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the script to this file instead of stdout")

	return cmd
}

// runScriptWith is the testable core of the script command. A non-empty
// output path receives the script through fs.
func runScriptWith(ctx context.Context, out io.Writer, res resolver.ArchiveResolver, fs storage.FileWriter, rootDir, raw, branch, mount, output string) error {
	src, err := res.Classify(raw, branch)
	if err != nil {
		return err
	}
	a, err := res.Resolve(ctx, src)
	if err != nil {
		return err
	}

	existing, err := storage.FolderNames(fs, filepath.Clean(rootDir))
	if err != nil {
		return err
	}
	folder := resolver.DeduplicateFolderName(a.FolderName, existing)

	script, err := bootstrap.Script(src.Kind, a, folder, bootstrap.Options{Mount: mount})
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Fprint(out, script)
		return nil
	}
	if err := fs.Write(output, []byte(script)); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	fmt.Fprintf(out, "📝 Wrote bootstrap script for %s to %s\n", folder, output)
	return nil
}
