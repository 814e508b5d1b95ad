package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every problem found in a configuration so the
// user can fix them in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Validate checks the configuration for internally inconsistent or
// unusable values.
func (c *Config) Validate() error {
	var problems []string

	if !c.Devices.Discovery && len(c.Devices.Addresses) == 0 {
		problems = append(problems, "devices: discovery disabled and no addresses configured")
	}
	if c.Devices.Discovery && strings.TrimSpace(c.Devices.DiscoveryURL) == "" {
		problems = append(problems, "devices: discovery enabled but discovery_url is empty")
	}
	for _, addr := range c.Devices.Addresses {
		if addr == "" {
			problems = append(problems, "devices: addresses contains an empty entry")
			break
		}
	}

	for name, dir := range map[string]string{
		"tv_dir":    c.Paths.TVDir,
		"movie_dir": c.Paths.MovieDir,
		"fail_dir":  c.Paths.FailDir,
		"temp_dir":  c.Paths.TempDir,
	} {
		if strings.TrimSpace(dir) == "" {
			problems = append(problems, fmt.Sprintf("paths: %s must be set", name))
		}
	}

	if c.Cache.ValiditySeconds < 0 {
		problems = append(problems, "cache: validity_seconds must not be negative")
	}
	if strings.TrimSpace(c.History.Path) == "" {
		problems = append(problems, "history: path must be set")
	}

	if c.Filters.DelaySeconds < 0 {
		problems = append(problems, "filters: delay_seconds must not be negative")
	}
	if c.Filters.MinDuration < 0 {
		problems = append(problems, "filters: min_duration must not be negative")
	}
	if c.Filters.MinQuality < 0 {
		problems = append(problems, "filters: min_quality must not be negative")
	}

	if (c.Tools.Transcode || c.Tools.Tag) && strings.TrimSpace(c.Tools.FFmpeg) == "" {
		problems = append(problems, "tools: ffmpeg must be set when transcode or tag is enabled")
	}
	if c.Tools.Captions && strings.TrimSpace(c.Tools.CCExtractor) == "" {
		problems = append(problems, "tools: ccextractor must be set when captions is enabled")
	}
	if c.Tools.UsePlaylist && !c.Tools.Transcode {
		problems = append(problems, "tools: use_playlist requires transcode")
	}

	if c.Workflow.SleepSeconds < 0 {
		problems = append(problems, "workflow: sleep_seconds must not be negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json", "":
	default:
		problems = append(problems, fmt.Sprintf("logging: unknown format %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
