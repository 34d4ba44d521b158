// Package config loads project settings (component I, SPEC_FULL.md §4.I)
// via spf13/viper, grounded on the teacher's internal/cli/root.go+
// config.go viper wiring: a config file discovered by name/path, layered
// under environment variables with an app-specific prefix. Config parsing
// never validates content field values (out of scope per spec.md's
// Non-goals) — it only validates its own shape.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lektor-go/lektor/pkg/errors"
)

// ProjectConfig is the root project configuration, SPEC_FULL.md §3.
type ProjectConfig struct {
	ContentRoot       string                    `mapstructure:"content_root"`
	OutputRoot        string                    `mapstructure:"output_root"`
	IgnoreAllowlist   []string                  `mapstructure:"ignore_allowlist"`
	PaginationPerPage int                       `mapstructure:"pagination_per_page"`
	RemoteCache       *RemoteCacheConfig        `mapstructure:"remote_cache"`
	AssetProcessors   map[string]ProcessorConfig `mapstructure:"asset_processors"`
}

// RemoteCacheConfig configures component K's build-state mirroring.
type RemoteCacheConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Container string `mapstructure:"container"`
	Key       string `mapstructure:"key"`

	// Extra carries backend-specific settings (region, storage_account_name,
	// credentials, endpoint, ...) that don't warrant a dedicated field.
	Extra map[string]string `mapstructure:"extra"`
}

// ProcessorConfig configures one entry of the Transformed-asset family's
// processor map, SPEC_FULL.md §4.E.
type ProcessorConfig struct {
	// Mode selects the backend: "exec" or "container".
	Mode string `mapstructure:"mode"`

	// exec mode
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`

	// container mode
	Image          string   `mapstructure:"image"`
	ContainerArgs  []string `mapstructure:"container_args"`

	OutputExt    string `mapstructure:"output_ext"`
	SourceMapExt string `mapstructure:"source_map_ext"`

	// Extensions lists the asset file extensions (including the leading
	// dot, e.g. ".less") this processor claims. content.Load consults
	// this to route an asset file to a Transformed asset program instead
	// of a plain byte-copy.
	Extensions []string `mapstructure:"extensions"`
}

const envPrefix = "LEKTOR"

// Load reads the project config file at path (or discovers lektor.{yaml,
// yml,hcl,json} in the current directory if path is empty), layers
// LEKTOR_-prefixed environment variables on top, and validates its shape.
func Load(path string) (*ProjectConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("content_root", "content")
	v.SetDefault("output_root", "htdocs")
	v.SetDefault("pagination_per_page", 20)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lektor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrCodeConfig, "read project config", err)
		}
	}

	var cfg ProjectConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "decode project config", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *ProjectConfig) error {
	if cfg.PaginationPerPage < 0 {
		return errors.New(errors.ErrCodeConfig, "pagination_per_page must not be negative").
			WithDetail("value", cfg.PaginationPerPage)
	}
	for name, p := range cfg.AssetProcessors {
		switch p.Mode {
		case "exec":
			if p.Command == "" {
				return errors.New(errors.ErrCodeConfig, fmt.Sprintf("asset_processors.%s: exec mode requires 'command'", name))
			}
		case "container":
			if p.Image == "" {
				return errors.New(errors.ErrCodeConfig, fmt.Sprintf("asset_processors.%s: container mode requires 'image'", name))
			}
		default:
			return errors.New(errors.ErrCodeConfig, fmt.Sprintf("asset_processors.%s: unknown mode %q", name, p.Mode)).
				WithDetail("known_modes", []string{"exec", "container"})
		}
		if p.OutputExt == "" {
			return errors.New(errors.ErrCodeConfig, fmt.Sprintf("asset_processors.%s: output_ext is required", name))
		}
	}
	if cfg.RemoteCache != nil && cfg.RemoteCache.Backend == "" {
		return errors.New(errors.ErrCodeConfig, "remote_cache requires 'backend'")
	}
	return nil
}
