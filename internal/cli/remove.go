package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/config"
	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/storage"
)

// newRemoveCmd creates the `remove` command.
// Usage: rimport remove <folder> [--root DIR]
func newRemoveCmd() *cobra.Command {
	var rootDir string

	cmd := &cobra.Command{
		Use:   "remove <folder>",
		Short: "Delete an imported folder and its ledger entry",
		Long: `Deletes a folder created by 'rimport import' and removes it from
.rimport.lock. Folders not recorded in the ledger are left alone.

Example:
  rimport remove demo_1`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeImportedFolders(rootDir, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoveWith(cmd.OutOrStdout(), &storage.OSFileWriter{}, rootDir, args[0])
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "Import directory holding .rimport.lock")

	return cmd
}

// runRemoveWith is the testable core of the remove command.
func runRemoveWith(out io.Writer, fs storage.FileWriter, rootDir, folder string) error {
	if !config.IsSafeFolderName(folder) {
		return fmt.Errorf("invalid folder name %q", folder)
	}

	ledgerPath := filepath.Join(rootDir, ledger.DefaultLedgerFile)
	led, err := ledger.Load(ledgerPath)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	if _, ok := led.Get(folder); !ok {
		return fmt.Errorf("%s not found in .rimport.lock", folder)
	}

	target := filepath.Join(rootDir, folder)
	if err := fs.Remove(target); err != nil {
		return fmt.Errorf("deleting %s: %w", target, err)
	}

	led.Remove(folder)
	if err := led.Save(ledgerPath); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	fmt.Fprintf(out, "🗑️  Removed %s from .rimport.lock\n", folder)
	fmt.Fprintf(out, "🧹 Deleted %s\n", target)
	return nil
}
