package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/app"
	"github.com/florianilch/shelf/internal/observability"
	"github.com/florianilch/shelf/internal/session"
)

const flushTimeout = 5 * time.Second

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return presentable(newRootCommand().Run(ctx, args))
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "shelf",
		Usage: "Track the games, movies, series and anime you play and watch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-exporter",
				Usage: "log exporter (console|stdout|otlp-http|otlp-grpc)",
				Value: string(app.DefaultConfigLogExporter),
			},
			&cli.StringFlag{
				Name:  "api--base-url",
				Usage: "backend API base URL",
				Value: app.DefaultConfigAPIBaseURL,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage (file|keyring|env|memory)",
				Value: string(app.DefaultConfigAuthStorage),
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			titlesCommand(),
			notificationsCommand(),
			usersCommand(),
			backupCommand(),
			themeCommand(),
			configCommand(),
			devServerCommand(),
		},
	}
}

// setup loads the configuration and installs logging. The returned func
// flushes the log pipeline.
func setup(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat), cfg.LogExporter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
		}
	}
	return cfg, flush, nil
}

type appAction func(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error

// withApp builds the client application around action.
func withApp(action appAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, flush, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer flush()

		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		if err := application.Init(ctx); err != nil {
			return err
		}

		return action(ctx, cmd, application, newPrinter(cmd, application.Theme.Palette().Styles()))
	}
}

var errNotLoggedIn = errors.New("not logged in, run `shelf login` first")

// presentable replaces API failures with the message meant for people.
func presentable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrSessionExpired) {
		return errors.New("session expired, run `shelf login` again")
	}
	if apiErr, ok := apiclient.AsError(err); ok {
		switch apiErr.Kind {
		case apiclient.KindTransport:
			return fmt.Errorf("backend unreachable: %w", apiErr.Err)
		case apiclient.KindHTTP:
			return errors.New(apiErr.Message)
		}
	}
	return err
}
