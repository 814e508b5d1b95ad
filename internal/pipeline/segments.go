package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"tablotogo/internal/fileutil"
	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
	"tablotogo/internal/services"
)

// fetchContainer downloads segments 1..N in order and concatenates them into
// the container file, returning how many segments were skipped. Concatenation
// is positional, so a hole corrupts everything after it: a failed segment
// fails the whole item unless the legacy allow_partial behavior is
// configured, which skips the segment and produces a truncated container.
// Cancellation deletes the partial container.
func (p *Pipeline) fetchContainer(ctx context.Context, rec metadata.Recording, container string, log *slog.Logger) (int, error) {
	count, err := p.source.SegmentCount(ctx, rec.Device, rec.RecordingID)
	if err != nil {
		return 0, services.Wrap(services.ErrStage, "pipeline", "probe", "segment count", err)
	}
	if count == 0 {
		return 0, services.Wrap(services.ErrStage, "pipeline", "probe", "recording has no segments", nil)
	}
	log.Info("downloading", logging.Int("segments", count))

	if err := fileutil.EnsureParent(container); err != nil {
		return 0, services.Wrap(services.ErrStage, "pipeline", "fetch", "create temp directory", err)
	}

	skipped := 0
	for segment := 1; segment <= count; segment++ {
		if err := ctx.Err(); err != nil {
			p.discard(container, log)
			return 0, err
		}
		if err := p.fetchOne(ctx, rec, container, segment); err != nil {
			if ctx.Err() != nil {
				p.discard(container, log)
				return 0, ctx.Err()
			}
			if p.cfg.Pipeline.AllowPartial {
				log.Warn("segment fetch failed, continuing with truncated container",
					logging.Int("segment", segment), logging.Error(err))
				skipped++
				continue
			}
			p.discard(container, log)
			return 0, services.Wrap(services.ErrStage, "pipeline", "fetch",
				fmt.Sprintf("segment %d of %d", segment, count), err)
		}
	}
	return skipped, nil
}

// fetchOne writes a single segment to its own temp file, appends it to the
// container, and removes the segment file.
func (p *Pipeline) fetchOne(ctx context.Context, rec metadata.Recording, container string, segment int) error {
	segPath := fmt.Sprintf("%s.%05d", container, segment)
	file, err := os.Create(segPath)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}
	_, fetchErr := p.source.FetchSegment(ctx, rec.Device, rec.RecordingID, segment, file)
	closeErr := file.Close()
	if fetchErr != nil {
		os.Remove(segPath)
		return fetchErr
	}
	if closeErr != nil {
		os.Remove(segPath)
		return fmt.Errorf("close segment file: %w", closeErr)
	}
	if _, err := fileutil.AppendFile(container, segPath); err != nil {
		os.Remove(segPath)
		return fmt.Errorf("append segment: %w", err)
	}
	return os.Remove(segPath)
}

func (p *Pipeline) discard(container string, log *slog.Logger) {
	if err := os.Remove(container); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove partial container",
			logging.String("file", container), logging.Error(err))
	}
}
