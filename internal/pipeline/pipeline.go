// Package pipeline turns one selected recording into a placed media file:
// segment download and reassembly, optional caption extraction, transcode,
// tagging, and final placement into the type-specific library tree.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tablotogo/internal/config"
	"tablotogo/internal/fileutil"
	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
)

// MediaSource is the device-side interface the pipeline pulls media through.
// *tablo.Client satisfies it.
type MediaSource interface {
	SegmentCount(ctx context.Context, ip string, id int) (int, error)
	FetchSegment(ctx context.Context, ip string, id, segment int, w io.Writer) (int64, error)
	WatchPlaylist(ctx context.Context, ip string, kind string, id int) (string, error)
}

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports how a pipeline run ended. FinalPath is set only for Done.
// SkippedSegments is non-zero when allow_partial let a truncated container
// through; callers surface it rather than recording a clean success.
type Result struct {
	Outcome         Outcome
	FinalPath       string
	SkippedSegments int
	Err             error
}

// Pipeline executes transfers for selected recordings, one at a time.
type Pipeline struct {
	cfg    *config.Config
	source MediaSource
	dryRun bool
	logger *slog.Logger
}

// New constructs a pipeline. With dryRun set, Run logs the transfer it would
// perform and touches nothing on disk or on the device.
func New(cfg *config.Config, source MediaSource, dryRun bool, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		source: source,
		dryRun: dryRun,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run drives one recording through the transfer state machine. Failures are
// scoped to this recording; the caller decides whether to continue with the
// next item. Cancellation deletes partial on-disk state before returning.
func (p *Pipeline) Run(ctx context.Context, rec metadata.Recording) Result {
	log := p.logger.With(
		logging.String("device", rec.Device),
		logging.Int("recording_id", rec.RecordingID),
		logging.String("identity", rec.Identity),
		logging.String("name", rec.DisplayName),
	)

	if p.dryRun {
		log.Info("dry run, would transfer", logging.String("destination", p.destinationDir(rec)))
		return Result{Outcome: OutcomeSkipped}
	}

	container := filepath.Join(p.cfg.Paths.TempDir, rec.BuildPath+".ts")

	// A container left by a prior interrupted run is reused instead of
	// re-downloaded.
	skippedSegments := 0
	if fileutil.Exists(container) {
		log.Info("container already present, skipping download", logging.String("container", container))
	} else {
		var err error
		skippedSegments, err = p.fetchContainer(ctx, rec, container, log)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err}
		}
	}

	subtitles := ""
	if p.cfg.Tools.Captions {
		subtitles = p.extractCaptions(ctx, container, rec, log)
	}

	final := container
	if p.cfg.Tools.Transcode {
		output, err := p.transcode(ctx, rec, container, subtitles, log)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err}
		}
		final = output
		if !p.cfg.Tools.KeepIntermediate {
			p.removeIntermediate(container, log)
			if subtitles != "" {
				p.removeIntermediate(subtitles, log)
			}
		}
	}

	if p.cfg.Tools.Tag && len(rec.Tags) > 0 {
		if err := p.tag(ctx, final, rec.Tags); err != nil {
			log.Warn("tagging failed, keeping untagged file", logging.Error(err))
		}
	}

	placed, err := p.place(rec, final, log)
	if err != nil {
		log.Error("placement failed, file left in temp directory",
			logging.String("file", final), logging.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	if skippedSegments > 0 {
		log.Warn("transfer complete but truncated",
			logging.String("file", placed),
			logging.Int("skipped_segments", skippedSegments))
	} else {
		log.Info("transfer complete", logging.String("file", placed))
	}
	return Result{Outcome: OutcomeDone, FinalPath: placed, SkippedSegments: skippedSegments}
}

func (p *Pipeline) removeIntermediate(path string, log *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove intermediate file",
			logging.String("file", path), logging.Error(err))
	}
}
