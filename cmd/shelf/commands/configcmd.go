package commands

import (
	"context"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/app"
)

const redacted = "<redacted>"

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect the effective configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the merged configuration as TOML",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, flush, err := setup(ctx, cmd)
					if err != nil {
						return err
					}
					defer flush()

					data, err := toml.Marshal(configView(cfg))
					if err != nil {
						return fmt.Errorf("encoding config: %w", err)
					}
					_, err = cmd.Root().Writer.Write(data)
					return err
				},
			},
		},
	}
}

// configView mirrors the config file layout with durations spelled out and
// secrets hidden.
func configView(cfg *app.Config) map[string]any {
	secret := ""
	if cfg.DevServer.Secret != "" {
		secret = redacted
	}
	seedPassword := ""
	if cfg.DevServer.SeedPassword != "" {
		seedPassword = redacted
	}

	return map[string]any{
		"log_level":    cfg.LogLevel.String(),
		"log_format":   string(cfg.LogFormat),
		"log_exporter": string(cfg.LogExporter),
		"api": map[string]any{
			"base_url":        cfg.API.BaseURL,
			"timeout":         cfg.API.Timeout.String(),
			"refresh_timeout": cfg.API.RefreshTimeout.String(),
		},
		"auth": map[string]any{
			"storage":      string(cfg.Auth.Storage),
			"dir":          cfg.Auth.Dir,
			"env_key":      cfg.Auth.EnvKey,
			"keyring_user": cfg.Auth.KeyringUser,
		},
		"prefs": map[string]any{
			"file": cfg.Prefs.File,
		},
		"notifications": map[string]any{
			"poll_interval": cfg.Notifications.PollInterval.String(),
		},
		"devserver": map[string]any{
			"host":          cfg.DevServer.Host,
			"port":          int64(cfg.DevServer.Port),
			"secret":        secret,
			"redis_url":     cfg.DevServer.RedisURL,
			"access_ttl":    cfg.DevServer.AccessTTL.String(),
			"seed_login":    cfg.DevServer.SeedLogin,
			"seed_password": seedPassword,
		},
		"shutdown": map[string]any{
			"timeout": cfg.Shutdown.Timeout.String(),
		},
	}
}
