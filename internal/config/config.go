// Package config loads lumora settings from defaults, an optional config
// file, .env files, LUMORA_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LUMORA_HTTP_ADDR.
const EnvPrefix = "LUMORA"

// Config is the resolved configuration.
type Config struct {
	// DB is a SQLite file path or a postgres:// URL. Empty means the
	// default data path.
	DB string

	// Student is the identity used by the CLI and the terminal player.
	Student string

	HTTP     HTTPConfig
	Auth     AuthConfig
	Quiz     QuizConfig
	Playback PlaybackConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr string
}

// AuthConfig configures how the API reads the caller's identity. With an
// empty JWTSecret the X-User-ID and X-User-Role headers are trusted.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type QuizConfig struct {
	PassRatio float64
	Questions int
}

type PlaybackConfig struct {
	UIInterval      time.Duration
	PersistInterval time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty: stderr
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":        "db",
	"student":   "student",
	"addr":      "http.addr",
	"log-level": "log.level",
	"log-file":  "log.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("student", "local")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("quiz.pass_ratio", 0.7)
	v.SetDefault("quiz.questions", 5)
	v.SetDefault("playback.ui_interval", 500*time.Millisecond)
	v.SetDefault("playback.persist_interval", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load resolves the configuration. fs may be nil; flags that were set on
// it override every other source. A "config" flag, when present, names
// the config file to read.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		DB:      v.GetString("db"),
		Student: v.GetString("student"),
		HTTP:    HTTPConfig{Addr: v.GetString("http.addr")},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Quiz: QuizConfig{
			PassRatio: v.GetFloat64("quiz.pass_ratio"),
			Questions: v.GetInt("quiz.questions"),
		},
		Playback: PlaybackConfig{
			UIInterval:      v.GetDuration("playback.ui_interval"),
			PersistInterval: v.GetDuration("playback.persist_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Quiz.PassRatio <= 0 || c.Quiz.PassRatio > 1 {
		errs = append(errs, fmt.Errorf("quiz.pass_ratio must be in (0, 1], got %v", c.Quiz.PassRatio))
	}
	if c.Quiz.Questions < 1 {
		errs = append(errs, fmt.Errorf("quiz.questions must be positive, got %d", c.Quiz.Questions))
	}
	if c.Playback.UIInterval <= 0 || c.Playback.PersistInterval <= 0 {
		errs = append(errs, errors.New("playback intervals must be positive"))
	}
	if strings.TrimSpace(c.Student) == "" {
		errs = append(errs, errors.New("student must not be empty"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// loadDotEnv loads .env from the working directory, and the file named by
// LUMORA_ENV_FILE, into the process environment. Existing variables win.
func loadDotEnv() error {
	files := []string{".env"}
	if f := os.Getenv(EnvPrefix + "_ENV_FILE"); f != "" {
		files = append([]string{f}, files...)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", f, err)
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", f.Value.String(), err)
			}
			return nil
		}
	}

	v.SetConfigName("config")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "lumora"))
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
