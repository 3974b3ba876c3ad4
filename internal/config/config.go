package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/emoted/internal/charset"
	"github.com/dshills/emoted/internal/keymap"
	"github.com/dshills/emoted/internal/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "EMOTED"

// DefaultPlugins are the compiled-in plugins started when none are configured.
var DefaultPlugins = []string{"emoji", "date", "find"}

// configNames are tried in order in each config directory.
var configNames = []string{"config.yaml", "config.yml", "config.toml", "config.json"}

// FlagKeys maps command-line flag names to the keys they override.
var FlagKeys = map[string]string{
	"log-level": "log.level",
	"log-file":  "log.file",
	"readonly":  "readonly",
	"plugins":   "plugins",
	"locale":    "locale",
	"watch":     "scripts.watch",
	"encoding":  "encoding",
}

// Config holds the editor configuration.
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Locale   string         `mapstructure:"locale"`
	ReadOnly bool           `mapstructure:"readonly"`
	Plugins  []string       `mapstructure:"plugins"`
	Scripts  Scripts        `mapstructure:"scripts"`

	// Encoding is the file encoding used to open and save
	Encoding string `mapstructure:"encoding"`

	// Keymap binds key combinations to text edits
	Keymap []keymap.Entry `mapstructure:"keymap"`

	// Files are the config files that were read, lowest priority first
	Files []string `mapstructure:"-"`
}

// Scripts configures the Lua script host.
type Scripts struct {
	// Paths are searched for .lua files; empty means the default paths
	Paths []string `mapstructure:"paths"`

	// Watch reloads scripts when their files change
	Watch bool `mapstructure:"watch"`

	// Timeout bounds each script run and callback
	Timeout time.Duration `mapstructure:"timeout"`

	// Settings holds the setup table for each script, by script name.
	// Keys are lower-cased.
	Settings map[string]map[string]any `mapstructure:"settings"`
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file; it replaces the user and project files
	File string

	// UserDir defaults to <user config dir>/emoted
	UserDir string

	// ProjectDir defaults to ./.emoted
	ProjectDir string

	// Flags are bound using FlagKeys; flags that were not set are ignored
	Flags *pflag.FlagSet
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	files, err := readFiles(v, opts)
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Files = files
	cfg.Scripts.Paths = expandPaths(cfg.Scripts.Paths)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	logDefaults := logging.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.console", false)
	v.SetDefault("log.time_format", logDefaults.TimeFormat)
	v.SetDefault("locale", "")
	v.SetDefault("readonly", false)
	v.SetDefault("encoding", charset.Default)
	v.SetDefault("plugins", DefaultPlugins)
	v.SetDefault("scripts.paths", []string{})
	v.SetDefault("scripts.watch", false)
	v.SetDefault("scripts.timeout", 2*time.Second)
}

// readFiles merges the user and project files, or reads opts.File alone.
func readFiles(v *viper.Viper, opts Options) ([]string, error) {
	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", opts.File, ErrFileNotFound)
			}
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
		return []string{opts.File}, nil
	}

	userDir := opts.UserDir
	if userDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			userDir = filepath.Join(dir, "emoted")
		}
	}
	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = ".emoted"
	}

	var files []string
	for _, dir := range []string{userDir, projectDir} {
		path, ok := findConfig(dir)
		if !ok {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func findConfig(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func expandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = expandPath(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandPath replaces a leading ~ with the home directory.
func expandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks values Unmarshal cannot.
func (c *Config) Validate() error {
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidLocale, c.Locale, err)
		}
	}
	if c.Scripts.Timeout < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.Scripts.Timeout)
	}
	if _, err := charset.Lookup(c.Encoding); err != nil {
		return err
	}
	return nil
}

// ParseKeymap parses the keymap entries. Invalid entries are reported in
// the error and left out of the returned keymap.
func (c *Config) ParseKeymap() (*keymap.Keymap, error) {
	return keymap.Parse(c.Keymap)
}

// LocaleTag returns the configured locale, or the one named by the
// environment (LC_ALL, LC_MESSAGES, LANG) when none is configured.
func (c *Config) LocaleTag() language.Tag {
	if c.Locale != "" {
		if tag, err := language.Parse(c.Locale); err == nil {
			return tag
		}
	}
	return EnvLocale()
}

// EnvLocale parses the POSIX locale variables. "C", "POSIX" and unparsable
// values give American English.
func EnvLocale() language.Tag {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		// de_DE.UTF-8@euro -> de-DE
		if i := strings.IndexAny(val, ".@"); i >= 0 {
			val = val[:i]
		}
		if val == "C" || val == "POSIX" {
			break
		}
		if tag, err := language.Parse(strings.ReplaceAll(val, "_", "-")); err == nil {
			return tag
		}
		break
	}
	return language.AmericanEnglish
}

// ScriptConfig returns the setup table for the named script.
func (c *Config) ScriptConfig(name string) map[string]any {
	return c.Scripts.Settings[strings.ToLower(name)]
}
