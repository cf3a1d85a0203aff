// Command rimport imports notebooks and GitHub/GitLab repositories into a working directory.
package main

import "github.com/cbout22/repo-import/internal/cli"

func main() {
	cli.Execute()
}
