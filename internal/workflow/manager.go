// Package workflow orchestrates poll cycles: device discovery, listing,
// metadata resolution through the cache, selection, and handing matches to
// the transfer pipeline. One cycle is sequential by design; auto mode
// repeats cycles on a configured interval.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tablotogo/internal/catalog"
	"tablotogo/internal/config"
	"tablotogo/internal/history"
	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
	"tablotogo/internal/naming"
	"tablotogo/internal/pipeline"
	"tablotogo/internal/selector"
	"tablotogo/internal/services/tablo"
)

// Mode selects what a cycle does with its matches.
type Mode int

const (
	// ModeTransfer downloads and places every match.
	ModeTransfer Mode = iota
	// ModeList only reports matches.
	ModeList
	// ModeComplete writes history entries for matches without downloading.
	ModeComplete
)

// Options carries the per-invocation knobs on top of the config file.
type Options struct {
	Mode    Mode
	Filters selector.Filters
	// DryRun makes transfers log their intent without touching anything.
	DryRun bool
	// Auto repeats cycles, sleeping the configured interval between them.
	Auto bool
}

// DeviceSummary aggregates one device's cycle outcome for the summary log
// and listing output.
type DeviceSummary struct {
	Device string
	selector.Counts
	Cached         int
	FailedMetadata int
	Transferred    int
	Failed         int
}

// CycleReport is the result of one poll cycle across all devices.
type CycleReport struct {
	RunID   string
	Devices []DeviceSummary
	// Matches in listing order.
	Matches []metadata.Recording
}

// Manager owns the single-instance lock and runs poll cycles.
type Manager struct {
	cfg    *config.Config
	client *tablo.Client
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
}

// New constructs a manager. The lock file lives in the temp directory so a
// second instance against the same tree refuses to start.
func New(cfg *config.Config, client *tablo.Client, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || client == nil {
		return nil, errors.New("workflow requires config and device client")
	}
	lockPath := filepath.Join(cfg.Paths.TempDir, "tablotogo.lock")
	return &Manager{
		cfg:      cfg,
		client:   client,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Run acquires the instance lock and executes cycles until done or
// cancelled. The last cycle's report is returned for listing output.
func (m *Manager) Run(ctx context.Context, opts Options) (*CycleReport, error) {
	ok, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another instance is already running (lock %s)", m.lockPath)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	for {
		report, err := m.Cycle(ctx, opts)
		if err != nil || !opts.Auto {
			return report, err
		}
		sleep := time.Duration(m.cfg.Workflow.SleepSeconds) * time.Second
		m.logger.Info("cycle complete, sleeping", logging.Duration("sleep", sleep))
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// Cycle performs one full poll: every device, every recording id, newest
// first. Per-device and per-item failures are counted and logged, never
// fatal; only cancellation aborts the cycle.
func (m *Manager) Cycle(ctx context.Context, opts Options) (*CycleReport, error) {
	runID := uuid.NewString()[:8]
	log := m.logger.With(logging.String("run", runID))
	log.Info("cycle started")

	hist := history.Load(m.cfg.History.Path, m.cfg.History.ExtraPaths, log)
	cache := catalog.Open(m.cfg.Cache.Path, log)
	sel := selector.New(opts.Filters, hist, time.Now, log)
	templates := naming.Templates{
		Custom: m.cfg.Naming.Custom,
		TV:     m.cfg.Naming.TV,
		Movie:  m.cfg.Naming.Movie,
		Sports: m.cfg.Naming.Sports,
		MCE:    m.cfg.Naming.MCE,
	}

	devices, err := m.devices(ctx, log)
	if err != nil {
		return nil, err
	}

	report := &CycleReport{RunID: runID}
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		summary, matches := m.pollDevice(ctx, device, cache, sel, templates, log)
		report.Devices = append(report.Devices, summary)
		report.Matches = append(report.Matches, matches...)
	}

	if cache.Enabled() {
		if err := cache.Save(); err != nil {
			log.Warn("could not save catalog cache", logging.Error(err))
		}
	}

	selector.SortForListing(report.Matches)

	if opts.Mode != ModeList {
		if err := m.processMatches(ctx, opts, report, hist, log); err != nil {
			return report, err
		}
	}

	for _, summary := range report.Devices {
		log.Info("device summary",
			logging.String("device", summary.Device),
			logging.Int("new_tv", summary.NewTV),
			logging.Int("new_movies", summary.NewMovies),
			logging.Int("new_sports", summary.NewSports),
			logging.Int("duplicates", summary.Duplicates),
			logging.Int("cached", summary.Cached),
			logging.Int("failed_metadata", summary.FailedMetadata),
			logging.Int("queued", summary.Queued),
			logging.Int("transferred", summary.Transferred),
			logging.Int("failed", summary.Failed))
	}
	return report, nil
}

// devices resolves the appliances to poll: configured addresses win,
// discovery fills in when none are configured. Discovery failure degrades
// to an empty list rather than failing the cycle.
func (m *Manager) devices(ctx context.Context, log *slog.Logger) ([]string, error) {
	if len(m.cfg.Devices.Addresses) > 0 {
		return m.cfg.Devices.Addresses, nil
	}
	if !m.cfg.Devices.Discovery {
		return nil, errors.New("no device addresses configured and discovery is disabled")
	}
	found, err := m.client.Discover(ctx)
	if err != nil {
		log.Warn("device discovery failed", logging.Error(err))
		return nil, nil
	}
	ips := make([]string, 0, len(found))
	for _, device := range found {
		log.Info("discovered device",
			logging.String("ip", device.IP),
			logging.String("name", device.Name))
		ips = append(ips, device.IP)
	}
	return ips, nil
}

// pollDevice lists one device and runs every id through resolution and
// selection, newest first.
func (m *Manager) pollDevice(
	ctx context.Context,
	device string,
	cache *catalog.Cache,
	sel *selector.Selector,
	templates naming.Templates,
	log *slog.Logger,
) (DeviceSummary, []metadata.Recording) {
	summary := DeviceSummary{Device: device}
	log = log.With(logging.String("device", device))

	ids, err := m.client.Recordings(ctx, device)
	if err != nil {
		log.Warn("could not list recordings", logging.Error(err))
		return summary, nil
	}
	log.Info("listing fetched", logging.Int("recordings", len(ids)))

	window := time.Duration(m.cfg.Cache.ValiditySeconds) * time.Second
	live := make(map[int]struct{}, len(ids))
	var matches []metadata.Recording

	// Newest first: higher ids are more recent recordings, and first-seen
	// dedup should keep the most recent airing of a program.
	for i := len(ids) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return summary, matches
		}
		id := ids[i]
		live[id] = struct{}{}

		doc, raw, cached := m.document(ctx, cache, device, id, window, log)
		if cached {
			summary.Cached++
		}
		if doc.Kind() == metadata.KindNull {
			summary.FailedMetadata++
			continue
		}

		rec := metadata.Resolve(doc, templates, log)
		rec.Device = device
		rec.RecordingID = id
		if !cached && raw != nil && cache.Enabled() {
			cache.Store(device, id, catalog.Entry{
				Document:  raw,
				FetchedAt: time.Now().UTC(),
				Status:    rec.Status,
			})
		}

		switch sel.Consider(rec) {
		case selector.Selected:
			summary.Queued++
			switch rec.Type {
			case metadata.TypeTV:
				summary.NewTV++
			case metadata.TypeMovie:
				summary.NewMovies++
			case metadata.TypeSports:
				summary.NewSports++
			}
			matches = append(matches, rec)
		case selector.Duplicate:
			summary.Duplicates++
		}
	}

	if cache.Enabled() {
		if pruned := cache.Prune(device, live); pruned > 0 {
			log.Info("pruned stale cache entries", logging.Int("pruned", pruned))
		}
	}
	return summary, matches
}

// document returns the metadata document for one recording, decoding the
// cached copy when fresh and fetching otherwise. The raw bytes are returned
// only for fresh fetches so the caller can store them. A fetch failure
// yields a null document.
func (m *Manager) document(
	ctx context.Context,
	cache *catalog.Cache,
	device string,
	id int,
	window time.Duration,
	log *slog.Logger,
) (metadata.Value, []byte, bool) {
	if entry, ok := cache.Lookup(device, id); ok && catalog.Fresh(entry, time.Now().UTC(), window) {
		doc, err := metadata.Decode(entry.Document)
		if err == nil {
			return doc, nil, true
		}
		log.Warn("cached document undecodable, refetching",
			logging.Int("recording_id", id), logging.Error(err))
	}
	raw, doc, err := m.client.Metadata(ctx, device, id)
	if err != nil {
		log.Warn("metadata fetch failed",
			logging.Int("recording_id", id), logging.Error(err))
		return metadata.Null(), nil, false
	}
	return doc, raw, false
}

// processMatches runs the pipeline (or the mark-complete shortcut) over
// every match and commits history for successes.
func (m *Manager) processMatches(
	ctx context.Context,
	opts Options,
	report *CycleReport,
	hist *history.Store,
	log *slog.Logger,
) error {
	pipe := pipeline.New(m.cfg, m.client, opts.DryRun, log)
	for _, rec := range report.Matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary := m.deviceSummary(report, rec.Device)

		if opts.Mode == ModeComplete {
			if opts.DryRun {
				log.Info("dry run, would mark complete",
					logging.String("identity", rec.Identity),
					logging.String("name", rec.DisplayName))
				continue
			}
			descriptor := historyDescriptor(rec) + " (marked complete)"
			if err := hist.Append(rec.Identity, descriptor); err != nil {
				log.Warn("could not write history entry",
					logging.String("identity", rec.Identity), logging.Error(err))
				continue
			}
			log.Info("marked complete",
				logging.String("identity", rec.Identity),
				logging.String("name", rec.DisplayName))
			continue
		}

		result := pipe.Run(ctx, rec)
		switch result.Outcome {
		case pipeline.OutcomeDone:
			if summary != nil {
				summary.Transferred++
			}
			descriptor := historyDescriptor(rec)
			if result.SkippedSegments > 0 {
				descriptor = fmt.Sprintf("%s (partial, %d segments skipped)",
					descriptor, result.SkippedSegments)
			}
			if err := hist.Append(rec.Identity, descriptor); err != nil {
				log.Warn("transfer placed but history write failed",
					logging.String("identity", rec.Identity), logging.Error(err))
			}
		case pipeline.OutcomeFailed:
			if summary != nil {
				summary.Failed++
			}
			if errors.Is(result.Err, context.Canceled) {
				return result.Err
			}
			log.Error("transfer failed",
				logging.String("identity", rec.Identity),
				logging.String("name", rec.DisplayName),
				logging.Error(result.Err))
		}
	}
	return nil
}

// historyDescriptor is the free-text remainder of a history line. TV and
// sports entries record "series - title"; movies keep the full display
// name, which already carries the year.
func historyDescriptor(rec metadata.Recording) string {
	switch rec.Type {
	case metadata.TypeTV, metadata.TypeSports:
		switch {
		case rec.Series == "":
			return rec.Title
		case rec.Title == "":
			return rec.Series
		default:
			return rec.Series + " - " + rec.Title
		}
	default:
		return rec.DisplayName
	}
}

func (m *Manager) deviceSummary(report *CycleReport, device string) *DeviceSummary {
	for i := range report.Devices {
		if report.Devices[i].Device == device {
			return &report.Devices[i]
		}
	}
	return nil
}
