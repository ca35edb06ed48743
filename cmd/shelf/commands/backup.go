package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/account"
	"github.com/florianilch/shelf/internal/app"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "export or import your library",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "download your library",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "file to write, defaults to the server's filename"},
				},
				Action: withApp(backupExportAction),
			},
			{
				Name:      "import",
				Usage:     "upload a previously exported library",
				ArgsUsage: "<file>",
				Action:    withApp(backupImportAction),
			},
		},
	}
}

func backupExportAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	// The guard loads the profile, which refreshes a stale token before the
	// download. Downloads never refresh on their own.
	if err := requireRoute(ctx, a, account.RouteSettings); err != nil {
		return err
	}

	blob, err := a.API.ExportBackup(ctx)
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		path = filepath.Base(blob.Filename)
	}
	if path == "" || path == "." || path == "/" {
		path = "backup_" + time.Now().Format(time.DateOnly) + ".txt"
	}

	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	out.success("Saved %d bytes to %s.", len(blob.Data), path)
	return nil
}

func backupImportAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteSettings); err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		return errors.New("missing backup file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	res, err := a.API.ImportBackup(ctx, path, f)
	if err != nil {
		return err
	}
	out.success("%s (%d titles)", res.Message, res.ProcessedCount)
	return nil
}
