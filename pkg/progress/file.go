package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"igleads/pkg/logger"
)

// recentLimit bounds the recent-activity log kept in the status file.
const recentLimit = 20

// status is the on-disk run status document.
type status struct {
	Stage     Stage     `json:"stage"`
	Detail    string    `json:"detail"`
	Percent   int       `json:"percent"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Recent    []string  `json:"recent"`
}

// FileSink writes run status to a JSON file so external tools can watch a
// run. Each write replaces the file atomically via a temp file and rename,
// so a watcher never observes a partial document.
type FileSink struct {
	path      string
	startedAt time.Time
	recent    []string
	logger    logger.Logger
}

// NewFileSink creates a FileSink writing to path. The parent directory is
// created if needed.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating progress directory: %w", err)
		}
	}
	return &FileSink{
		path:      path,
		startedAt: time.Now(),
		logger:    logger.GetLogger(),
	}, nil
}

// Emit writes the event to the status file. Write failures are logged and
// swallowed; progress reporting must never fail a run.
func (s *FileSink) Emit(event Event) {
	line := fmt.Sprintf("%s %s", event.Timestamp.Format(time.RFC3339), event.Stage)
	if event.Detail != "" {
		line += ": " + event.Detail
	}
	s.recent = append(s.recent, line)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}

	doc := status{
		Stage:     event.Stage,
		Detail:    event.Detail,
		Percent:   event.Percent,
		StartedAt: s.startedAt,
		UpdatedAt: event.Timestamp,
		Recent:    s.recent,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.WithError(err).Warn("failed to encode progress status")
		return
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		s.logger.WithError(err).Warn("failed to write progress status")
		return
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		s.logger.WithError(err).Warn("failed to replace progress status")
	}
}

// Remove deletes the status file, typically at the end of a run.
func (s *FileSink) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ControlFileStop returns a StopCheck that reads a control file and
// requests a stop when its content is the word "stop". A missing or
// unreadable file means keep running.
func ControlFileStop(path string) StopCheck {
	return func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(string(data)), "stop")
	}
}
