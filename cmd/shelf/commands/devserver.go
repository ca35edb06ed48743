package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/app"
)

func devServerCommand() *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "run an in-memory backend for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "devserver--host",
				Usage: "listen host",
				Value: app.DefaultConfigDevServerHost,
			},
			&cli.IntFlag{
				Name:  "devserver--port",
				Usage: "listen port",
				Value: int(app.DefaultConfigDevServerPort),
			},
			&cli.StringFlag{
				Name:  "devserver--redis-url",
				Usage: "store refresh sessions in redis (redis://host:port/db)",
			},
			&cli.DurationFlag{
				Name:  "devserver--access-ttl",
				Usage: "access token lifetime",
				Value: app.DefaultConfigDevServerAccess,
			},
			&cli.StringFlag{
				Name:  "devserver--seed-login",
				Usage: "create this account on startup",
			},
			&cli.StringFlag{
				Name:  "devserver--seed-password",
				Usage: "password of the seeded account",
			},
		},
		Action: devServerAction,
	}
}

func devServerAction(ctx context.Context, cmd *cli.Command) error {
	cfg, flush, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer flush()

	slog.InfoContext(ctx, "starting")

	if err := app.RunDevServer(ctx, cfg); err != nil {
		return fmt.Errorf("dev server failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
