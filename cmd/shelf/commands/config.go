package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/app"
)

// envPrefix marks shelf settings in the environment. A double underscore
// separates the section: SHELF_AUTH__STORAGE sets auth.storage.
const envPrefix = "SHELF_"

// rootSettings are the flags outside any section ([api], [auth], [devserver],
// ...) that still belong to the configuration.
var rootSettings = map[string]bool{
	"log-level":    true,
	"log-format":   true,
	"log-exporter": true,
}

// loadConfig builds the shelf configuration. Later layers override earlier
// ones: the TOML file, then SHELF_* variables, then flags set on cmd.
// Whatever is still unset falls back to the app defaults.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	environment := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
		EnvironFunc: environFunc,
	})
	if err := k.Load(environment, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if cmd != nil {
		if err := k.Load(confmap.Provider(configFlags(cmd), "."), nil); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	cfg := &app.Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps SHELF_NOTIFICATIONS__POLL_INTERVAL to notifications.poll_interval.
func envKey(name string) string {
	name = strings.TrimPrefix(name, envPrefix)
	return strings.ToLower(strings.ReplaceAll(name, "__", "."))
}

// flagKey maps --devserver--redis-url to devserver.redis_url.
func flagKey(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "--", "."), "-", "_")
}

// configFlags collects the configuration flags the user set on cmd or any of
// its parents. Command arguments such as --status or --output are skipped.
func configFlags(cmd *cli.Command) map[string]any {
	values := make(map[string]any)
	for _, name := range cmd.FlagNames() {
		if !cmd.IsSet(name) {
			continue
		}
		if !strings.Contains(name, "--") && !rootSettings[name] {
			continue
		}
		if value := cmd.Value(name); value != nil {
			values[flagKey(name)] = value
		}
	}
	return values
}
