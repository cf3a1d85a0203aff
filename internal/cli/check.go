package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/storage"
)

// newCheckCmd creates the `check` command.
// Usage: rimport check [--strict] [--root DIR]
func newCheckCmd() *cobra.Command {
	var (
		strict  bool
		rootDir string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that recorded imports are still present on disk",
		Long: `Validates that every folder recorded in .rimport.lock still exists and
is not empty. Useful before handing the directory to a compute session.

With --strict, the command exits with a non-zero code if any import is
missing or empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckWith(cmd.OutOrStdout(), &storage.OSFileWriter{}, rootDir, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with error code if imports are missing or empty")
	cmd.Flags().StringVar(&rootDir, "root", ".", "Import directory holding .rimport.lock")

	return cmd
}

// runCheckWith is the testable core of the check command.
func runCheckWith(out io.Writer, fs storage.FileWriter, rootDir string, strict bool) error {
	led, err := ledger.Load(filepath.Join(rootDir, ledger.DefaultLedgerFile))
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	if len(led.Entries) == 0 {
		fmt.Fprintln(out, "📋 No imports recorded in .rimport.lock — nothing to check.")
		return nil
	}

	results, err := CheckImports(led, fs, rootDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "🔍 Checking %d import(s)...\n\n", len(results))

	var issues int
	for _, r := range results {
		switch r.Status {
		case CheckOK:
			fmt.Fprintf(out, "  ✅ %s — ok (%s)\n", r.Folder, r.Source)
		case CheckFolderMissing:
			fmt.Fprintf(out, "  ❌ %s — folder missing (was %d file(s) from %s)\n", r.Folder, r.Files, r.Source)
			issues++
		case CheckFolderEmpty:
			fmt.Fprintf(out, "  ⚠️  %s — folder is empty\n", r.Folder)
			issues++
		}
	}

	fmt.Fprintln(out)
	if issues > 0 {
		msg := fmt.Sprintf("Found %d issue(s). Run 'rimport remove <folder>' and import again to fix.", issues)
		if strict {
			return fmt.Errorf("%s", msg)
		}
		fmt.Fprintf(out, "⚠️  %s\n", msg)
	} else {
		fmt.Fprintln(out, "✅ All imports are present.")
	}
	return nil
}
