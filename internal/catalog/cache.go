// Package catalog persists the raw metadata documents fetched from each
// device, keyed by (device, recording id), so unchanged finished recordings
// are not re-fetched every poll cycle.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tablotogo/internal/logging"
	"tablotogo/internal/services"
)

const snapshotVersion = 1

// Entry is one cached raw document with its fetch time and the recording
// state observed at fetch time. Only finished recordings may be served from
// cache; every other state forces a re-fetch.
type Entry struct {
	Document  json.RawMessage `json:"document"`
	FetchedAt time.Time       `json:"fetched_at"`
	Status    string          `json:"status"`
}

type snapshot struct {
	Version int                         `json:"version"`
	Devices map[string]map[string]Entry `json:"devices"`
}

// Cache is the in-memory view of the snapshot file. Persistence is a
// whole-file rewrite: load, mutate in memory, serialize back.
type Cache struct {
	path    string
	logger  *slog.Logger
	devices map[string]map[string]Entry
}

// Open loads the cache at path, treating a missing, corrupt, or
// version-mismatched file as empty. An empty path disables the cache: every
// lookup misses and Save is a no-op.
func Open(path string, logger *slog.Logger) *Cache {
	c := &Cache{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "catalog"),
		devices: make(map[string]map[string]Entry),
	}
	if path == "" {
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache file unreadable, starting empty",
				logging.String("path", path), logging.Error(err))
		}
		return c
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != snapshotVersion {
		c.logger.Warn("cache file corrupt or from another version, starting empty",
			logging.String("path", path))
		return c
	}
	if snap.Devices != nil {
		c.devices = snap.Devices
	}
	return c
}

// Enabled reports whether a cache path is configured.
func (c *Cache) Enabled() bool { return c.path != "" }

// Lookup returns the cached entry for a recording, if any.
func (c *Cache) Lookup(device string, id int) (Entry, bool) {
	entries, ok := c.devices[device]
	if !ok {
		return Entry{}, false
	}
	entry, ok := entries[strconv.Itoa(id)]
	return entry, ok
}

// Store replaces the cached entry for a recording.
func (c *Cache) Store(device string, id int, entry Entry) {
	entries, ok := c.devices[device]
	if !ok {
		entries = make(map[string]Entry)
		c.devices[device] = entries
	}
	entries[strconv.Itoa(id)] = entry
}

// Fresh reports whether an entry may be served without a re-fetch: only
// finished recordings within the validity window qualify. In-progress and
// failed recordings are never stable enough to cache.
func Fresh(entry Entry, now time.Time, window time.Duration) bool {
	if entry.Status != "finished" {
		return false
	}
	return now.Sub(entry.FetchedAt) < window
}

// Prune drops entries for one device whose id no longer appears in that
// device's current listing. Other devices' entries are untouched.
func (c *Cache) Prune(device string, live map[int]struct{}) int {
	entries, ok := c.devices[device]
	if !ok {
		return 0
	}
	removed := 0
	for key := range entries {
		id, err := strconv.Atoi(key)
		if err != nil {
			delete(entries, key)
			removed++
			continue
		}
		if _, present := live[id]; !present {
			delete(entries, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of cached entries across all devices.
func (c *Cache) Count() int {
	total := 0
	for _, entries := range c.devices {
		total += len(entries)
	}
	return total
}

// Save rewrites the snapshot file atomically. Failures degrade to a logged
// skip; the next cycle simply re-fetches.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot{Version: snapshotVersion, Devices: c.devices}, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "save", "marshal snapshot", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrPersistence, "catalog", "save", "create cache directory", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "save", "write temp file", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrPersistence, "catalog", "save", fmt.Sprintf("rename to %s", c.path), err)
	}
	return nil
}
