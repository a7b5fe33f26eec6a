package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// sqlStore implements core.Store on database/sql. SQLite and MySQL share the
// queries; only the DDL and DSN handling differ, so those live in the
// per-driver constructors. Times are stored as RFC 3339 strings and JSON
// columns hold focus areas and digest content.
type sqlStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// GetProfile returns a user's profile, or core.ErrNotFound
func (s *sqlStore) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, personal_email, telegram_chat_id, role, focus_areas, digest_day, digest_time
		FROM profiles WHERE id = ?
	`, userID)
	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return profile, err
}

// ListProfiles returns every user profile
func (s *sqlStore) ListProfiles(ctx context.Context) ([]*core.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, personal_email, telegram_chat_id, role, focus_areas, digest_day, digest_time
		FROM profiles
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*core.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// UpsertProfile inserts or replaces a user profile
func (s *sqlStore) UpsertProfile(ctx context.Context, profile *core.UserProfile) error {
	focus, err := json.Marshal(profile.FocusAreas)
	if err != nil {
		return fmt.Errorf("failed to marshal focus areas: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		REPLACE INTO profiles (id, personal_email, telegram_chat_id, role, focus_areas, digest_day, digest_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, profile.ID, profile.PersonalEmail, profile.TelegramChatID, profile.Role, string(focus), profile.DigestDay, profile.DigestTime)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// InsertRawEmail persists a newly ingested message
func (s *sqlStore) InsertRawEmail(ctx context.Context, email *core.RawEmail) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_emails (id, user_id, sender, subject, body_plain, body_html, received_at, processing_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, email.ID, email.UserID, email.Sender, email.Subject, email.BodyPlain, email.BodyHTML,
		email.ReceivedAt.UTC().Format(time.RFC3339), string(email.ProcessingStatus))
	if err != nil {
		return fmt.Errorf("failed to insert raw email: %w", err)
	}
	return nil
}

// PendingRawEmails returns the user's emails not yet carrying a summary
func (s *sqlStore) PendingRawEmails(ctx context.Context, userID string) ([]*core.RawEmail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, sender, subject, body_plain, body_html, received_at, processing_status
		FROM raw_emails
		WHERE user_id = ? AND processing_status = ?
		ORDER BY received_at
	`, userID, string(core.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending emails: %w", err)
	}
	defer rows.Close()

	var emails []*core.RawEmail
	for rows.Next() {
		var email core.RawEmail
		var receivedAt, status string
		if err := rows.Scan(&email.ID, &email.UserID, &email.Sender, &email.Subject,
			&email.BodyPlain, &email.BodyHTML, &receivedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan raw email: %w", err)
		}
		email.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
		email.ProcessingStatus = core.ProcessingStatus(status)
		emails = append(emails, &email)
	}
	return emails, rows.Err()
}

// InsertSummary persists a stage 1 result
func (s *sqlStore) InsertSummary(ctx context.Context, summary *core.EmailSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_summaries (id, user_id, source_email_id, topic, summary, category, importance, digest_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)
	`, summary.ID, summary.UserID, summary.SourceEmailID, summary.Topic, summary.Summary,
		string(summary.Category), summary.Importance, summary.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// MarkEmailSummarized advances a raw email from pending to summarized. The
// guarded update makes a second writer's attempt a no-op.
func (s *sqlStore) MarkEmailSummarized(ctx context.Context, emailID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE raw_emails SET processing_status = ?
		WHERE id = ? AND processing_status = ?
	`, string(core.StatusSummarized), emailID, string(core.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to advance email status: %w", err)
	}
	return nil
}

// HasSummaryFor reports whether a summary already exists for the raw email
func (s *sqlStore) HasSummaryFor(ctx context.Context, emailID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM email_summaries WHERE source_email_id = ?
	`, emailID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count summaries: %w", err)
	}
	return count > 0, nil
}

// UnclaimedSummaries returns the user's summaries with no digest id and
// importance strictly above the threshold
func (s *sqlStore) UnclaimedSummaries(ctx context.Context, userID string, minImportance int) ([]*core.EmailSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, source_email_id, topic, summary, category, importance, digest_id, created_at
		FROM email_summaries
		WHERE user_id = ? AND digest_id IS NULL AND importance > ?
		ORDER BY created_at
	`, userID, minImportance)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclaimed summaries: %w", err)
	}
	defer rows.Close()
	return collectSummaries(rows)
}

// CreateDigestAndClaim persists a digest and stamps its id onto the consumed
// summaries inside one transaction, so a crash cannot leave summaries that
// were read but never linked.
func (s *sqlStore) CreateDigestAndClaim(ctx context.Context, digest *core.Digest, summaryIDs []string) error {
	content, err := json.Marshal(digest.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal digest content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO digests (id, user_id, user_email, summary_text, content, period_start, period_end, is_sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, digest.ID, digest.UserID, digest.UserEmail, digest.SummaryText, string(content),
		digest.PeriodStart.UTC().Format(time.RFC3339), digest.PeriodEnd.UTC().Format(time.RFC3339),
		boolToInt(digest.IsSent), digest.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert digest: %w", err)
	}

	for _, id := range summaryIDs {
		res, err := tx.ExecContext(ctx, `
			UPDATE email_summaries SET digest_id = ? WHERE id = ? AND digest_id IS NULL
		`, digest.ID, id)
		if err != nil {
			return fmt.Errorf("failed to claim summary %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check claim of summary %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("summary %s already claimed by another digest", id)
		}
	}

	return tx.Commit()
}

// MarkDigestSent flips a digest's sent flag
func (s *sqlStore) MarkDigestSent(ctx context.Context, digestID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE digests SET is_sent = 1 WHERE id = ?
	`, digestID)
	if err != nil {
		return fmt.Errorf("failed to mark digest sent: %w", err)
	}
	return nil
}

// UnsentDigests returns the user's digests with is_sent still false
func (s *sqlStore) UnsentDigests(ctx context.Context, userID string) ([]*core.Digest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_email, summary_text, content, period_start, period_end, is_sent, created_at
		FROM digests
		WHERE user_id = ? AND is_sent = 0
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsent digests: %w", err)
	}
	defer rows.Close()

	var digests []*core.Digest
	for rows.Next() {
		var d core.Digest
		var content, periodStart, periodEnd, createdAt string
		var isSent int
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserEmail, &d.SummaryText, &content,
			&periodStart, &periodEnd, &isSent, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan digest: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &d.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal digest content: %w", err)
		}
		d.PeriodStart, _ = time.Parse(time.RFC3339, periodStart)
		d.PeriodEnd, _ = time.Parse(time.RFC3339, periodEnd)
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		d.IsSent = isSent != 0
		digests = append(digests, &d)
	}
	return digests, rows.Err()
}

// SummariesForDigest returns the summaries claimed by a digest
func (s *sqlStore) SummariesForDigest(ctx context.Context, digestID string) ([]*core.EmailSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, source_email_id, topic, summary, category, importance, digest_id, created_at
		FROM email_summaries
		WHERE digest_id = ?
		ORDER BY created_at
	`, digestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimed summaries: %w", err)
	}
	defer rows.Close()
	return collectSummaries(rows)
}

// ActiveSubscribers returns the profiles subscribed to a sender address
func (s *sqlStore) ActiveSubscribers(ctx context.Context, senderEmail string) ([]*core.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.personal_email, p.telegram_chat_id, p.role, p.focus_areas, p.digest_day, p.digest_time
		FROM profiles p
		JOIN subscriptions sub ON sub.user_id = p.id
		WHERE sub.sender_email = ? AND sub.is_active = 1
	`, senderEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var profiles []*core.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// InsertSubscription persists one allow-list entry
func (s *sqlStore) InsertSubscription(ctx context.Context, sub *core.SenderSubscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, sender_email, is_active)
		VALUES (?, ?, ?, ?)
	`, sub.ID, sub.UserID, sub.SenderEmail, boolToInt(sub.IsActive))
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// LogRun records one pipeline run's outcome
func (s *sqlStore) LogRun(ctx context.Context, entry *core.RunLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_logs (id, user_id, status, emails_processed, error_message, ran_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, string(entry.Status), entry.EmailsProcessed, entry.ErrorMessage,
		entry.RanAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert run log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*core.UserProfile, error) {
	var profile core.UserProfile
	var focus string
	err := row.Scan(&profile.ID, &profile.PersonalEmail, &profile.TelegramChatID,
		&profile.Role, &focus, &profile.DigestDay, &profile.DigestTime)
	if err != nil {
		return nil, err
	}
	if focus != "" {
		if err := json.Unmarshal([]byte(focus), &profile.FocusAreas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal focus areas: %w", err)
		}
	}
	return &profile, nil
}

func collectSummaries(rows *sql.Rows) ([]*core.EmailSummary, error) {
	var summaries []*core.EmailSummary
	for rows.Next() {
		var sum core.EmailSummary
		var category, createdAt string
		var digestID sql.NullString
		if err := rows.Scan(&sum.ID, &sum.UserID, &sum.SourceEmailID, &sum.Topic, &sum.Summary,
			&category, &sum.Importance, &digestID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.Category = core.Category(category)
		sum.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if digestID.Valid {
			sum.DigestID = &digestID.String
		}
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
