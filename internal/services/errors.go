// Package services defines the error taxonomy shared by the device client,
// the persisted stores, and the transfer pipeline.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks device-unreachable and HTTP non-success failures;
	// always non-fatal to the run, the affected operation degrades to an
	// empty result.
	ErrTransport = errors.New("transport error")
	// ErrMetadata marks malformed metadata documents. Field absence is not
	// an error at all; this covers undecodable payloads.
	ErrMetadata = errors.New("metadata error")
	// ErrPersistence marks cache/history read or write failures; reads
	// degrade to empty state, writes are logged and skipped.
	ErrPersistence = errors.New("persistence error")
	// ErrStage marks a transfer pipeline stage failure, isolated to the
	// item being processed.
	ErrStage = errors.New("stage error")
	// ErrConfiguration marks unusable configuration, including a second
	// instance contending for the run lock.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap tags an error with one of the sentinel markers above plus component
// context for operator triage.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
