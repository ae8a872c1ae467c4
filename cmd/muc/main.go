package main

import (
	"fmt"
	"os"

	"github.com/wolfslender/Media-Usage-Checker/cmd/muc/cli"
	"github.com/wolfslender/Media-Usage-Checker/cmd/muc/cli/media"
	"github.com/wolfslender/Media-Usage-Checker/cmd/muc/cli/server"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())
	root.AddCommand(server.NewMigrateCommand())
	root.AddCommand(server.NewTokenCommand())

	root.AddCommand(media.NewScanCommand())
	root.AddCommand(media.NewStatusCommand())
	root.AddCommand(media.NewResetCommand())
	root.AddCommand(media.NewCheckCommand())
	root.AddCommand(media.NewListCommand())
	root.AddCommand(media.NewDeleteCommand())
	root.AddCommand(media.NewRestoreCommand())
	root.AddCommand(media.NewEmptyTrashCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err.Error()))
		os.Exit(1)
	}
}
