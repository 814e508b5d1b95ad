package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Devices configures which appliances to poll.
type Devices struct {
	// Addresses lists device IPs to poll. Empty means rely on discovery.
	Addresses []string `toml:"addresses"`
	// Discovery queries the vendor association server for local devices.
	Discovery    bool   `toml:"discovery"`
	DiscoveryURL string `toml:"discovery_url"`
}

// Paths contains the directory layout for transfers.
type Paths struct {
	TVDir         string `toml:"tv_dir"`
	MovieDir      string `toml:"movie_dir"`
	SportsDir     string `toml:"sports_dir"`
	FailDir       string `toml:"fail_dir"`
	TempDir       string `toml:"temp_dir"`
	DuplicatesDir string `toml:"duplicates_dir"`
}

// Cache configures the catalog cache of raw metadata documents.
type Cache struct {
	// Path of the snapshot file; empty disables caching.
	Path string `toml:"path"`
	// ValiditySeconds bounds how long a finished recording's document may
	// be served from cache.
	ValiditySeconds int `toml:"validity_seconds"`
}

// History configures the transfer history files.
type History struct {
	Path string `toml:"path"`
	// ExtraPaths are merged at load with lower precedence, typically a
	// kmttg auto.history.
	ExtraPaths []string `toml:"extra_paths"`
}

// Naming contains the naming template configuration.
type Naming struct {
	Custom           string `toml:"custom"`
	TV               string `toml:"tv"`
	Movie            string `toml:"movie"`
	Sports           string `toml:"sports"`
	MCE              bool   `toml:"mce"`
	CreateSeriesDirs bool   `toml:"create_series_dirs"`
}

// Filters contains the default selection criteria; CLI flags override.
type Filters struct {
	DelaySeconds int `toml:"delay_seconds"`
	MinDuration  int `toml:"min_duration"`
	MinQuality   int `toml:"min_quality"`
}

// Tools configures the external executables the pipeline shells out to.
// Command argument templates accept {input}, {output}, {build}, {subtitles},
// and {m3u8} placeholders.
type Tools struct {
	FFmpeg          string `toml:"ffmpeg"`
	TranscodeArgs   string `toml:"transcode_args"`
	TagArgs         string `toml:"tag_args"`
	CCExtractor     string `toml:"ccextractor"`
	CCExtractorArgs string `toml:"ccextractor_args"`

	Captions         bool `toml:"captions"`
	Transcode        bool `toml:"transcode"`
	Tag              bool `toml:"tag"`
	KeepIntermediate bool `toml:"keep_intermediate"`
	// UsePlaylist transcodes from the device's playback playlist instead
	// of the reassembled segment container.
	UsePlaylist bool `toml:"use_playlist"`
}

// Pipeline contains transfer behavior toggles.
type Pipeline struct {
	// AllowPartial preserves the legacy skip-failed-segment behavior,
	// producing a truncated container instead of failing the item.
	AllowPartial bool `toml:"allow_partial"`
}

// Workflow contains cycle timing.
type Workflow struct {
	SleepSeconds int `toml:"sleep_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config encapsulates the full configuration, threaded explicitly through
// every component entry point.
type Config struct {
	Devices  Devices  `toml:"devices"`
	Paths    Paths    `toml:"paths"`
	Cache    Cache    `toml:"cache"`
	History  History  `toml:"history"`
	Naming   Naming   `toml:"naming"`
	Filters  Filters  `toml:"filters"`
	Tools    Tools    `toml:"tools"`
	Pipeline Pipeline `toml:"pipeline"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/tablotogo/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tablotogo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.TVDir, &c.Paths.MovieDir, &c.Paths.SportsDir,
		&c.Paths.FailDir, &c.Paths.TempDir, &c.Paths.DuplicatesDir,
		&c.Cache.Path, &c.History.Path, &c.Logging.File,
	}
	for _, p := range paths {
		if strings.TrimSpace(*p) == "" {
			*p = ""
			continue
		}
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	for i, extra := range c.History.ExtraPaths {
		expanded, err := ExpandPath(extra)
		if err != nil {
			return err
		}
		c.History.ExtraPaths[i] = expanded
	}
	for i, addr := range c.Devices.Addresses {
		c.Devices.Addresses[i] = strings.TrimSpace(addr)
	}
	return nil
}

// EnsureDirectories creates the directories a transfer run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.TVDir, c.Paths.MovieDir, c.Paths.SportsDir,
		c.Paths.FailDir, c.Paths.TempDir, c.Paths.DuplicatesDir,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves ~ and relative segments to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the given location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
