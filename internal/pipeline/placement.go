package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tablotogo/internal/fileutil"
	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
	"tablotogo/internal/services"
	"tablotogo/internal/textutil"
)

// destinationDir picks the library directory for a recording. TV episodes
// without season/episode data go to the fail tree so they surface for manual
// renaming instead of polluting the series layout.
func (p *Pipeline) destinationDir(rec metadata.Recording) string {
	switch rec.Type {
	case metadata.TypeTV:
		if rec.SeasonEpisode == "" {
			return p.cfg.Paths.FailDir
		}
		if !p.cfg.Naming.CreateSeriesDirs {
			return p.cfg.Paths.TVDir
		}
		season := strings.TrimLeft(rec.Season, "0")
		if season == "" {
			season = "0"
		}
		series := textutil.Squish(textutil.Clean(rec.Series, nil))
		return filepath.Join(p.cfg.Paths.TVDir, series, "Season "+season)
	case metadata.TypeSports:
		if p.cfg.Paths.SportsDir != "" {
			return p.cfg.Paths.SportsDir
		}
		return p.cfg.Paths.MovieDir
	case metadata.TypeMovie:
		return p.cfg.Paths.MovieDir
	default:
		return p.cfg.Paths.FailDir
	}
}

// place moves the finished file into its destination. A like-named file
// already at the destination is never overwritten; the new file is diverted
// into the duplicates directory instead.
func (p *Pipeline) place(rec metadata.Recording, src string, log *slog.Logger) (string, error) {
	destDir := p.destinationDir(rec)
	if destDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "pipeline", "place",
			fmt.Sprintf("no destination directory configured for type %s", rec.Type), nil)
	}
	if err := fileutil.EnsureDir(destDir); err != nil {
		return "", services.Wrap(services.ErrStage, "pipeline", "place", "create destination", err)
	}

	name := rec.BuildPath + filepath.Ext(src)
	target := filepath.Join(destDir, name)
	if fileutil.Exists(target) {
		if p.cfg.Paths.DuplicatesDir == "" {
			return "", services.Wrap(services.ErrStage, "pipeline", "place",
				fmt.Sprintf("%s already exists and no duplicates directory is configured", target), nil)
		}
		log.Warn("destination exists, diverting to duplicates directory",
			logging.String("destination", target))
		if err := fileutil.EnsureDir(p.cfg.Paths.DuplicatesDir); err != nil {
			return "", services.Wrap(services.ErrStage, "pipeline", "place", "create duplicates directory", err)
		}
		target = duplicateTarget(p.cfg.Paths.DuplicatesDir, name)
	}

	if err := fileutil.MoveFile(src, target); err != nil {
		return "", services.Wrap(services.ErrStage, "pipeline", "place", target, err)
	}
	return target, nil
}

// duplicateTarget finds an unused name in the duplicates directory so
// repeated collisions never overwrite each other either.
func duplicateTarget(dir, name string) string {
	target := filepath.Join(dir, name)
	if !fileutil.Exists(target) {
		return target
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !fileutil.Exists(candidate) {
			return candidate
		}
	}
}
