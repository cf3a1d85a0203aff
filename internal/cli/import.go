package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/archive"
	"github.com/cbout22/repo-import/internal/importer"
	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/storage"
)

// newImportCmd creates the `import` command.
// Usage: rimport import <url>... [--branch <ref>] [--root DIR] [--exclude GLOB]...
func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		branch     string
		rootDir    string
		exclude    []string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "import <url>...",
		Short: "Download sources and unpack them into new folders",
		Long: heredoc.Doc(`
			Resolves each URL, picks a free folder name under --root and unpacks
			the archive into it. Existing folders are never overwritten: a taken
			name gets a _1, _2, ... suffix. Every import is recorded in .rimport.lock.

			Example:
			  rimport import https://github.com/acme/demo --exclude '**/.github/**'
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			res, err := newResolver(s)
			if err != nil {
				return err
			}

			matcher, err := archive.NewMatcher(append(append([]string{}, s.Download.Exclude...), exclude...))
			if err != nil {
				return err
			}

			var progress io.Writer
			if !noProgress {
				progress = os.Stderr
			}
			client := archive.NewClient(nil, archive.Options{RetryMax: s.Download.RetryMax, Progress: progress})

			ledgerPath := filepath.Join(rootDir, ledger.DefaultLedgerFile)
			led, err := ledger.Load(ledgerPath)
			if err != nil {
				return err
			}

			imp := importer.New(res, client, &storage.OSFileWriter{}, led, rootDir, matcher)
			return runImportWith(cmd.Context(), cmd.OutOrStdout(), imp, led, ledgerPath, args, branch)
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch or tag for GitLab sources")
	cmd.Flags().StringVar(&rootDir, "root", ".", "Directory to import into")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Glob of archive paths to skip (repeatable, ** spans directories)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the download progress bar")

	return cmd
}

// runImportWith is the testable core of the import command.
func runImportWith(ctx context.Context, out io.Writer, imp *importer.Importer, led *ledger.Ledger, ledgerPath string, urls []string, branch string) error {
	fmt.Fprintf(out, "📥 Importing %d source(s)...\n\n", len(urls))

	var failed int
	for _, raw := range urls {
		fmt.Fprintf(out, "  📦 %s\n", raw)

		result := imp.Import(ctx, raw, branch)
		if result.Err != nil {
			fmt.Fprintf(out, "  ❌ %s: %s\n", raw, result.Err)
			failed++
			continue
		}
		fmt.Fprintf(out, "  ✅ %s → %s (%d file(s), %s)\n",
			raw, result.Folder, result.Files, bytesize.New(float64(result.Bytes)))
	}

	if err := led.Save(ledgerPath); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return fmt.Errorf("import completed with %d error(s)", failed)
	}

	fmt.Fprintln(out, "✅ All sources imported.")
	return nil
}
