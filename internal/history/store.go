// Package history is the append-only record of transferred identities. The
// file format is one line per transfer, first token the identity, remainder a
// free-text descriptor; it is shared with other transfer tools, so the format
// never changes.
package history

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"tablotogo/internal/logging"
	"tablotogo/internal/services"
)

// Store holds the in-memory membership set backed by the primary history
// file. Append is the only mutator.
type Store struct {
	mu      sync.Mutex
	primary string
	entries map[string]string
	logger  *slog.Logger
}

// Load builds a store from the primary file plus any extra sources. Extras
// load first, in order, so the primary file wins for a colliding identity.
// Missing files are treated as empty, not as errors.
func Load(primary string, extras []string, logger *slog.Logger) *Store {
	s := &Store{
		primary: primary,
		entries: make(map[string]string),
		logger:  logging.NewComponentLogger(logger, "history"),
	}
	for _, path := range extras {
		s.loadFile(path)
	}
	s.loadFile(primary)
	return s
}

func (s *Store) loadFile(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("history file unreadable, treating as empty",
				logging.String("path", path), logging.Error(err))
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		s.entries[fields[0]] = line
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("history file partially read",
			logging.String("path", path), logging.Error(err))
	}
}

// Contains reports whether the identity has already been transferred.
func (s *Store) Contains(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[identity]
	return ok
}

// Len returns the number of known identities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Append records a completed transfer: one line to the primary file, and the
// in-memory set updated before returning so later items in the same run see
// it. A crash mid-write loses at most this one in-flight entry.
func (s *Store) Append(identity, descriptor string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return services.Wrap(services.ErrPersistence, "history", "append", "empty identity", nil)
	}
	line := identity + " " + descriptor

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.primary != "" {
		file, err := os.OpenFile(s.primary, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return services.Wrap(services.ErrPersistence, "history", "append", s.primary, err)
		}
		_, werr := fmt.Fprintln(file, line)
		cerr := file.Close()
		if werr != nil {
			return services.Wrap(services.ErrPersistence, "history", "append", s.primary, werr)
		}
		if cerr != nil {
			return services.Wrap(services.ErrPersistence, "history", "append", s.primary, cerr)
		}
	}
	s.entries[identity] = line
	return nil
}
