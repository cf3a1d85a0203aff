package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/repo-import/internal/ledger"
)

// completeImportedFolders offers the folders recorded in the ledger under rootDir.
func completeImportedFolders(rootDir, toComplete string) ([]string, cobra.ShellCompDirective) {
	led, err := ledger.Load(filepath.Join(rootDir, ledger.DefaultLedgerFile))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, folder := range led.Folders() {
		if strings.HasPrefix(folder, toComplete) {
			e, _ := led.Get(folder)
			completions = append(completions, formatCompletionLine(folder, e.Source))
		}
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// formatCompletionLine renders "<value>\t<description>" for cobra.
func formatCompletionLine(value, description string) string {
	if description == "" {
		return value
	}
	return fmt.Sprintf("%s\t%s", value, description)
}
