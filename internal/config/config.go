// Package config loads srsdb settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/xhit/go-str2duration/v2"

	"github.com/conorfennell/srsdb/internal/logging"
	"github.com/conorfennell/srsdb/internal/srs"
)

// EnvPrefix marks environment variables read as configuration. A double
// underscore separates nested keys: SRSDB_REVIEW__WRONG_DELAY.
const EnvPrefix = "SRSDB_"

// DefaultFile is read when present and no file is named explicitly.
const DefaultFile = "srsdb.yaml"

// Config is the application configuration.
type Config struct {
	Database string         `koanf:"database" validate:"required"`
	Log      logging.Config `koanf:"log"`
	Review   Review         `koanf:"review"`
}

// Review tunes the scheduler.
type Review struct {
	WrongDelay  time.Duration `koanf:"wrong_delay" validate:"gt=0"`
	BuryDelay   time.Duration `koanf:"bury_delay" validate:"gt=0"`
	EasyCeiling int           `koanf:"easy_ceiling" validate:"gte=1"`
	// UndoWindow bounds how long a grading can be undone; zero never expires.
	UndoWindow  time.Duration `koanf:"undo_window" validate:"gte=0"`
	// Intervals seeds the interval table of a database on creation.
	Intervals []time.Duration `koanf:"intervals" validate:"dive,gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: "srsdb.db",
		Log:      logging.Config{Level: "info", Format: "console"},
		Review: Review{
			WrongDelay:  srs.DefaultWrongDelay,
			BuryDelay:   srs.DefaultBuryDelay,
			EasyCeiling: srs.DefaultEasyCeiling,
			UndoWindow:  srs.DefaultUndoWindow,
		},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"db":         "database",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load builds the configuration. path names the YAML file; when empty,
// DefaultFile is used if it exists. Only flags that were set on the command
// line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", DefaultFile, err)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		pick := func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, pick), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				durationHook,
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// durationHook decodes durations with day and week units, such as "3d".
func durationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	return str2duration.ParseDuration(data.(string))
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
