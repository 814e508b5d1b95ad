package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for missing file at %s", path)
	}
	if cfg.Cache.ValiditySeconds != 604800 {
		t.Errorf("cache validity = %d, want 604800", cfg.Cache.ValiditySeconds)
	}
	if cfg.Workflow.SleepSeconds != 1800 {
		t.Errorf("sleep = %d, want 1800", cfg.Workflow.SleepSeconds)
	}
	if !cfg.Naming.CreateSeriesDirs {
		t.Error("create_series_dirs should default to true")
	}
	if !cfg.Tools.Tag {
		t.Error("tag should default to true")
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[devices]
addresses = ["192.168.1.50"]
discovery = false

[paths]
tv_dir = "~/shows"

[filters]
min_quality = 720

[logging]
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "shows"); cfg.Paths.TVDir != want {
		t.Errorf("tv_dir = %q, want %q", cfg.Paths.TVDir, want)
	}
	if cfg.Filters.MinQuality != 720 {
		t.Errorf("min_quality = %d, want 720", cfg.Filters.MinQuality)
	}
	if cfg.Devices.Addresses[0] != "192.168.1.50" {
		t.Errorf("addresses = %v", cfg.Devices.Addresses)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	// Unset sections keep defaults.
	if cfg.Paths.MovieDir == "" {
		t.Error("movie_dir should keep its default")
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Devices.Discovery = false
	cfg.Devices.Addresses = nil
	cfg.Cache.ValiditySeconds = -1
	cfg.Filters.MinDuration = -5
	cfg.Tools.UsePlaylist = true
	cfg.Tools.Transcode = false
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !strings.Contains(err.Error(), "discovery disabled") {
		t.Errorf("missing discovery problem in %v", err)
	}
	if ok := errorsAs(err, &verr); !ok {
		t.Fatalf("error is %T, want *ValidationError", err)
	}
	if len(verr.Problems) != 5 {
		t.Errorf("got %d problems, want 5: %v", len(verr.Problems), verr.Problems)
	}
}

func errorsAs(err error, target **ValidationError) bool {
	v, ok := err.(*ValidationError)
	if ok {
		*target = v
	}
	return ok
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultTranscodeEnabled(t *testing.T) {
	cfg := Default()
	if !cfg.Tools.Transcode {
		t.Error("transcode should default to on")
	}
	if !cfg.Tools.Tag {
		t.Error("tagging should default to on")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("loading sample config: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.TVDir = filepath.Join(dir, "tv")
	cfg.Paths.MovieDir = filepath.Join(dir, "movies")
	cfg.Paths.SportsDir = filepath.Join(dir, "sports")
	cfg.Paths.FailDir = filepath.Join(dir, "fail")
	cfg.Paths.TempDir = filepath.Join(dir, "tmp")
	cfg.Paths.DuplicatesDir = ""

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.TVDir, cfg.Paths.TempDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", d)
		}
	}
}
