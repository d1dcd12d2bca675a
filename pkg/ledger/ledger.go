// Package ledger maintains the per-account enrichment state. Each account
// row tracks the scraped profile, the extracted contact email, the
// influencer verdict and the outreach history, together with the flags and
// timestamps that drive re-processing when a bio changes.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"igleads/pkg/logger"
	"igleads/pkg/store"
)

// Profile is the scraped view of an account, as returned by the profile
// scraper. A nil Bio means the scraper produced no biography, which is
// distinct from an empty one.
type Profile struct {
	Username string
	FullName string
	Bio      *string
}

// Record is one account's full enrichment state.
type Record struct {
	Username             string
	FullName             string
	Bio                  *string
	Email                *string
	IsInfluencer         bool
	CheckedInfluencer    bool
	CheckedInfluencerAt  *time.Time
	NeedsEmailExtraction bool
	ProfileUpdatedAt     *time.Time
	EmailExtractedAt     *time.Time
	CreatedAt            time.Time

	EmailSent    bool
	EmailSentAt  *time.Time
	EmailSubject *string
	EmailBody    *string
	DMSent       bool
	DMSentAt     *time.Time
	DMMessage    *string
}

// Ledger provides transactional access to account enrichment state.
type Ledger struct {
	store  *store.Store
	now    func() time.Time
	logger logger.Logger
}

// New creates a Ledger backed by the given store.
func New(st *store.Store) *Ledger {
	return &Ledger{
		store:  st,
		now:    time.Now,
		logger: logger.GetLogger(),
	}
}

const recordColumns = `username, full_name, bio, email,
	is_influencer, checked_influencer, checked_influencer_at,
	needs_email_extraction, profile_updated_at, email_extracted_at, created_at,
	email_sent, email_sent_at, email_subject, email_body,
	dm_sent, dm_sent_at, dm_message`

// Get returns the record for a single username, or store.ErrNotFound.
func (l *Ledger) Get(username string) (*Record, error) {
	row := l.store.DB().QueryRow(
		`SELECT `+recordColumns+` FROM accounts WHERE username = ?`, username)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return rec, err
}

// GetProfiles returns the stored records for the given usernames, keyed by
// username. Unknown usernames are simply absent from the map.
func (l *Ledger) GetProfiles(usernames []string) (map[string]*Record, error) {
	records := make(map[string]*Record, len(usernames))
	if len(usernames) == 0 {
		return records, nil
	}

	placeholders := strings.Repeat("?,", len(usernames))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(usernames))
	for i, u := range usernames {
		args[i] = u
	}

	rows, err := l.store.DB().Query(
		`SELECT `+recordColumns+` FROM accounts WHERE username IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records[rec.Username] = rec
	}
	return records, rows.Err()
}

// MissingProfiles returns the subset of usernames with no ledger record,
// preserving input order.
func (l *Ledger) MissingProfiles(usernames []string) ([]string, error) {
	known, err := l.GetProfiles(usernames)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, u := range usernames {
		if _, ok := known[u]; !ok {
			missing = append(missing, u)
		}
	}
	return missing, nil
}

// UpsertProfiles reconciles freshly scraped profiles against the ledger
// and returns the usernames now flagged for email extraction.
//
// A previously unseen account is inserted with the extraction flag set. For
// a known account, a non-nil bio that differs from the stored one updates
// the profile and re-arms the flag; an identical or absent bio refreshes
// the full name only and leaves every flag and timestamp untouched.
func (l *Ledger) UpsertProfiles(profiles []Profile) ([]string, error) {
	if len(profiles) == 0 {
		return nil, nil
	}

	now := l.now().UTC().Format(store.TimeFormat)
	var flagged []string

	err := l.store.WithTx(func(tx *sql.Tx) error {
		for _, p := range profiles {
			var storedBio sql.NullString
			err := tx.QueryRow(
				`SELECT bio FROM accounts WHERE username = ?`, p.Username).Scan(&storedBio)
			switch {
			case err == sql.ErrNoRows:
				if _, err := tx.Exec(`
					INSERT INTO accounts (username, full_name, bio, needs_email_extraction,
						profile_updated_at, created_at)
					VALUES (?, ?, ?, 1, ?, ?)`,
					p.Username, p.FullName, nullable(p.Bio), now, now); err != nil {
					return fmt.Errorf("inserting account %s: %w", p.Username, err)
				}
				flagged = append(flagged, p.Username)

			case err != nil:
				return fmt.Errorf("looking up account %s: %w", p.Username, err)

			case bioChanged(storedBio, p.Bio):
				if _, err := tx.Exec(`
					UPDATE accounts
					SET full_name = ?, bio = ?, needs_email_extraction = 1, profile_updated_at = ?
					WHERE username = ?`,
					p.FullName, *p.Bio, now, p.Username); err != nil {
					return fmt.Errorf("updating account %s: %w", p.Username, err)
				}
				flagged = append(flagged, p.Username)

			default:
				if _, err := tx.Exec(`
					UPDATE accounts SET full_name = ? WHERE username = ?`,
					p.FullName, p.Username); err != nil {
					return fmt.Errorf("refreshing account %s: %w", p.Username, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoWithFields("reconciled scraped profiles", map[string]interface{}{
		"profiles": len(profiles),
		"flagged":  len(flagged),
	})
	return flagged, nil
}

// bioChanged reports whether the incoming bio should trigger re-extraction.
// Only a present, different bio counts as a change.
func bioChanged(stored sql.NullString, incoming *string) bool {
	if incoming == nil {
		return false
	}
	if !stored.Valid {
		return true
	}
	return stored.String != *incoming
}

// PendingExtraction returns the records currently flagged for email
// extraction, ordered by username.
func (l *Ledger) PendingExtraction() ([]*Record, error) {
	return l.queryRecords(
		`SELECT ` + recordColumns + ` FROM accounts
		WHERE needs_email_extraction = 1 ORDER BY username ASC`)
}

// MarkEmailResults records the outcome of an extraction pass. The map value
// is the extracted email, or nil when extraction ran but found none. Both
// outcomes clear the extraction flag and stamp the extraction time; only a
// non-nil value writes the email column, so a null email with a set
// timestamp means "processed, nothing found".
func (l *Ledger) MarkEmailResults(results map[string]*string) error {
	if len(results) == 0 {
		return nil
	}
	now := l.now().UTC().Format(store.TimeFormat)

	return l.store.WithTx(func(tx *sql.Tx) error {
		for username, email := range results {
			var err error
			if email != nil {
				_, err = tx.Exec(`
					UPDATE accounts
					SET email = ?, needs_email_extraction = 0, email_extracted_at = ?
					WHERE username = ?`, *email, now, username)
			} else {
				_, err = tx.Exec(`
					UPDATE accounts
					SET needs_email_extraction = 0, email_extracted_at = ?
					WHERE username = ?`, now, username)
			}
			if err != nil {
				return fmt.Errorf("recording extraction for %s: %w", username, err)
			}
		}
		return nil
	})
}

// UncheckedInfluencers returns usernames that have never been through an
// influencer check.
func (l *Ledger) UncheckedInfluencers() ([]string, error) {
	rows, err := l.store.DB().Query(`
		SELECT username FROM accounts
		WHERE checked_influencer = 0 ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		usernames = append(usernames, u)
	}
	return usernames, rows.Err()
}

// MarkInfluencerChecked records a completed influencer check and its
// verdict. The checked state is permanent.
func (l *Ledger) MarkInfluencerChecked(username string, isInfluencer bool) error {
	now := l.now().UTC().Format(store.TimeFormat)
	_, err := l.store.DB().Exec(`
		UPDATE accounts
		SET is_influencer = ?, checked_influencer = 1, checked_influencer_at = ?
		WHERE username = ?`, boolInt(isInfluencer), now, username)
	if err != nil {
		return fmt.Errorf("marking influencer check for %s: %w", username, err)
	}
	return nil
}

// MarkInfluencerCheckFailed records that a check ran but failed. The
// account still counts as checked; any previous verdict is preserved.
func (l *Ledger) MarkInfluencerCheckFailed(username string) error {
	now := l.now().UTC().Format(store.TimeFormat)
	_, err := l.store.DB().Exec(`
		UPDATE accounts
		SET checked_influencer = 1, checked_influencer_at = ?
		WHERE username = ?`, now, username)
	if err != nil {
		return fmt.Errorf("marking failed influencer check for %s: %w", username, err)
	}
	return nil
}

// Influencers returns accounts with a positive influencer verdict,
// optionally restricted to those with an extracted email.
func (l *Ledger) Influencers(onlyWithEmail bool) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM accounts WHERE is_influencer = 1`
	if onlyWithEmail {
		query += ` AND email IS NOT NULL AND email != ''`
	}
	query += ` ORDER BY username ASC`
	return l.queryRecords(query)
}

// Uncontacted returns influencers with an email that have not yet been
// sent an outreach email.
func (l *Ledger) Uncontacted() ([]*Record, error) {
	return l.queryRecords(
		`SELECT ` + recordColumns + ` FROM accounts
		WHERE is_influencer = 1 AND email IS NOT NULL AND email != '' AND email_sent = 0
		ORDER BY username ASC`)
}

// MarkEmailSent records a delivered outreach email and its content.
func (l *Ledger) MarkEmailSent(username, subject, body string) error {
	now := l.now().UTC().Format(store.TimeFormat)
	_, err := l.store.DB().Exec(`
		UPDATE accounts
		SET email_sent = 1, email_sent_at = ?, email_subject = ?, email_body = ?
		WHERE username = ?`, now, subject, body, username)
	if err != nil {
		return fmt.Errorf("marking email sent for %s: %w", username, err)
	}
	return nil
}

// MarkDMSent records a prepared direct message for an account.
func (l *Ledger) MarkDMSent(username, message string) error {
	now := l.now().UTC().Format(store.TimeFormat)
	_, err := l.store.DB().Exec(`
		UPDATE accounts
		SET dm_sent = 1, dm_sent_at = ?, dm_message = ?
		WHERE username = ?`, now, message, username)
	if err != nil {
		return fmt.Errorf("marking dm sent for %s: %w", username, err)
	}
	return nil
}

// All returns every record, ordered by username.
func (l *Ledger) All() ([]*Record, error) {
	return l.queryRecords(`SELECT ` + recordColumns + ` FROM accounts ORDER BY username ASC`)
}

func (l *Ledger) queryRecords(query string, args ...interface{}) ([]*Record, error) {
	rows, err := l.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scannable) (*Record, error) {
	var (
		rec          Record
		bio          sql.NullString
		email        sql.NullString
		isInf        int
		checked      int
		checkedAt    sql.NullString
		needsExtract int
		updatedAt    sql.NullString
		extractedAt  sql.NullString
		createdAt    string
		emailSent    int
		emailSentAt  sql.NullString
		subject      sql.NullString
		body         sql.NullString
		dmSent       int
		dmSentAt     sql.NullString
		dmMessage    sql.NullString
	)
	err := row.Scan(&rec.Username, &rec.FullName, &bio, &email,
		&isInf, &checked, &checkedAt,
		&needsExtract, &updatedAt, &extractedAt, &createdAt,
		&emailSent, &emailSentAt, &subject, &body,
		&dmSent, &dmSentAt, &dmMessage)
	if err != nil {
		return nil, err
	}

	rec.Bio = nullString(bio)
	rec.Email = nullString(email)
	rec.IsInfluencer = isInf != 0
	rec.CheckedInfluencer = checked != 0
	rec.NeedsEmailExtraction = needsExtract != 0
	rec.EmailSent = emailSent != 0
	rec.DMSent = dmSent != 0
	rec.EmailSubject = nullString(subject)
	rec.EmailBody = nullString(body)
	rec.DMMessage = nullString(dmMessage)

	if rec.CheckedInfluencerAt, err = nullTime(checkedAt); err != nil {
		return nil, err
	}
	if rec.ProfileUpdatedAt, err = nullTime(updatedAt); err != nil {
		return nil, err
	}
	if rec.EmailExtractedAt, err = nullTime(extractedAt); err != nil {
		return nil, err
	}
	if rec.EmailSentAt, err = nullTime(emailSentAt); err != nil {
		return nil, err
	}
	if rec.DMSentAt, err = nullTime(dmSentAt); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(store.TimeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", rec.Username, err)
	}
	return &rec, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(store.TimeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
