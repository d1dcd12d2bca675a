// Package enrich reconciles discovered usernames against the enrichment
// ledger: it decides which accounts need a profile fetch, ingests scraped
// profiles, and routes flagged bios through email extraction.
package enrich

import (
	"igleads/pkg/apify"
	"igleads/pkg/ledger"
	"igleads/pkg/logger"
)

// Reconciler partitions accounts between cached ledger state and the
// external collaborators that refresh it.
type Reconciler struct {
	ledger *ledger.Ledger
	logger logger.Logger
}

// NewReconciler creates a Reconciler over the given ledger.
func NewReconciler(l *ledger.Ledger) *Reconciler {
	return &Reconciler{
		ledger: l,
		logger: logger.GetLogger(),
	}
}

// Partition splits usernames into accounts whose ledger record is already
// usable (full name and bio present, no fetch needed) and accounts that
// need a profile fetch. Input order is preserved in both halves.
func (r *Reconciler) Partition(usernames []string) (usable, needFetch []string, err error) {
	records, err := r.ledger.GetProfiles(usernames)
	if err != nil {
		return nil, nil, err
	}
	for _, username := range usernames {
		rec, ok := records[username]
		if ok && rec.FullName != "" && rec.Bio != nil {
			usable = append(usable, username)
		} else {
			needFetch = append(needFetch, username)
		}
	}
	return usable, needFetch, nil
}

// Ingest writes freshly scraped profiles into the ledger and returns the
// usernames now flagged for email extraction.
func (r *Reconciler) Ingest(items []apify.ProfileItem) ([]string, error) {
	profiles := make([]ledger.Profile, 0, len(items))
	for _, item := range items {
		profiles = append(profiles, ledger.Profile{
			Username: item.Username,
			FullName: item.FullName,
			Bio:      item.Biography,
		})
	}
	return r.ledger.UpsertProfiles(profiles)
}

// PendingBios returns the (username, bio) pairs currently flagged for
// email extraction. Flagged accounts without a bio cannot be extracted
// from and are excluded.
func (r *Reconciler) PendingBios() (map[string]string, error) {
	pending, err := r.ledger.PendingExtraction()
	if err != nil {
		return nil, err
	}
	bios := make(map[string]string, len(pending))
	for _, rec := range pending {
		if rec.Bio != nil && *rec.Bio != "" {
			bios[rec.Username] = *rec.Bio
		}
	}
	return bios, nil
}

// ApplyEmailResults records an extraction pass. Every requested username
// is resolved: one the extractor omitted is recorded as the explicit
// no-email state rather than left pending forever.
func (r *Reconciler) ApplyEmailResults(requested []string, results map[string]*string) error {
	complete := make(map[string]*string, len(requested))
	for _, username := range requested {
		complete[username] = results[username]
	}
	if len(complete) == 0 {
		return nil
	}

	found := 0
	for _, email := range complete {
		if email != nil {
			found++
		}
	}
	r.logger.InfoWithFields("recording extraction results", map[string]interface{}{
		"processed":  len(complete),
		"with_email": found,
		"without":    len(complete) - found,
	})
	return r.ledger.MarkEmailResults(complete)
}
