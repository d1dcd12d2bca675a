// Package report exports ledger state for downstream use.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igleads/pkg/ledger"
	"igleads/pkg/logger"
)

// Account is the exported view of one ledger record.
type Account struct {
	Username          string     `json:"username"`
	FullName          string     `json:"full_name"`
	Bio               *string    `json:"bio"`
	Email             *string    `json:"email"`
	IsInfluencer      bool       `json:"is_influencer"`
	CheckedInfluencer bool       `json:"checked_influencer"`
	EmailSent         bool       `json:"email_sent"`
	EmailSentAt       *time.Time `json:"email_sent_at,omitempty"`
	DMSent            bool       `json:"dm_sent"`
	CreatedAt         time.Time  `json:"created_at"`
}

// document is the top-level export file layout.
type document struct {
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Accounts    []Account `json:"accounts"`
}

// Exporter writes ledger snapshots to disk.
type Exporter struct {
	ledger *ledger.Ledger
	logger logger.Logger
}

// NewExporter creates an Exporter over the given ledger.
func NewExporter(l *ledger.Ledger) *Exporter {
	return &Exporter{
		ledger: l,
		logger: logger.GetLogger(),
	}
}

// ExportInfluencers writes qualified influencers to a JSON file, replacing
// it atomically. It returns the number of accounts written.
func (e *Exporter) ExportInfluencers(path string, onlyWithEmail bool) (int, error) {
	records, err := e.ledger.Influencers(onlyWithEmail)
	if err != nil {
		return 0, err
	}
	return e.write(path, records)
}

// ExportAll writes every ledger record to a JSON file.
func (e *Exporter) ExportAll(path string) (int, error) {
	records, err := e.ledger.All()
	if err != nil {
		return 0, err
	}
	return e.write(path, records)
}

func (e *Exporter) write(path string, records []*ledger.Record) (int, error) {
	accounts := make([]Account, 0, len(records))
	for _, rec := range records {
		accounts = append(accounts, Account{
			Username:          rec.Username,
			FullName:          rec.FullName,
			Bio:               rec.Bio,
			Email:             rec.Email,
			IsInfluencer:      rec.IsInfluencer,
			CheckedInfluencer: rec.CheckedInfluencer,
			EmailSent:         rec.EmailSent,
			EmailSentAt:       rec.EmailSentAt,
			DMSent:            rec.DMSent,
			CreatedAt:         rec.CreatedAt,
		})
	}

	doc := document{
		GeneratedAt: time.Now().UTC(),
		Count:       len(accounts),
		Accounts:    accounts,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding export: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("creating export directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("replacing export: %w", err)
	}

	e.logger.InfoWithFields("export written", map[string]interface{}{
		"path":     path,
		"accounts": len(accounts),
	})
	return len(accounts), nil
}
