package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sundaylabs/sunday-digest/internal/core"
)

// MemoryStore is an in-memory implementation of the core.Store interface,
// used for tests and the dev profile. It mirrors the SQL stores' semantics,
// including the guarded status transition and the atomic claim.
type MemoryStore struct {
	mu            sync.RWMutex
	profiles      map[string]*core.UserProfile
	rawEmails     map[string]*core.RawEmail
	summaries     map[string]*core.EmailSummary
	digests       map[string]*core.Digest
	subscriptions map[string]*core.SenderSubscription
	runLogs       []*core.RunLog
}

var _ core.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:      make(map[string]*core.UserProfile),
		rawEmails:     make(map[string]*core.RawEmail),
		summaries:     make(map[string]*core.EmailSummary),
		digests:       make(map[string]*core.Digest),
		subscriptions: make(map[string]*core.SenderSubscription),
	}
}

// GetProfile returns a user's profile, or core.ErrNotFound
func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

// ListProfiles returns every user profile
func (s *MemoryStore) ListProfiles(_ context.Context) ([]*core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]*core.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		cp := *p
		profiles = append(profiles, &cp)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// UpsertProfile inserts or replaces a user profile
func (s *MemoryStore) UpsertProfile(_ context.Context, profile *core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	s.profiles[profile.ID] = &cp
	return nil
}

// InsertRawEmail persists a newly ingested message
func (s *MemoryStore) InsertRawEmail(_ context.Context, email *core.RawEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rawEmails[email.ID]; exists {
		return fmt.Errorf("raw email %s already exists", email.ID)
	}
	cp := *email
	s.rawEmails[email.ID] = &cp
	return nil
}

// PendingRawEmails returns the user's emails not yet carrying a summary
func (s *MemoryStore) PendingRawEmails(_ context.Context, userID string) ([]*core.RawEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emails []*core.RawEmail
	for _, e := range s.rawEmails {
		if e.UserID == userID && e.ProcessingStatus == core.StatusPending {
			cp := *e
			emails = append(emails, &cp)
		}
	}
	sort.Slice(emails, func(i, j int) bool { return emails[i].ReceivedAt.Before(emails[j].ReceivedAt) })
	return emails, nil
}

// InsertSummary persists a stage 1 result. A second summary for the same raw
// email is rejected.
func (s *MemoryStore) InsertSummary(_ context.Context, summary *core.EmailSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.summaries {
		if existing.SourceEmailID == summary.SourceEmailID {
			return fmt.Errorf("summary for email %s already exists", summary.SourceEmailID)
		}
	}
	cp := *summary
	s.summaries[summary.ID] = &cp
	return nil
}

// MarkEmailSummarized advances a raw email from pending to summarized
func (s *MemoryStore) MarkEmailSummarized(_ context.Context, emailID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.rawEmails[emailID]
	if !ok {
		return core.ErrNotFound
	}
	// Guarded transition: advancing past pending is a no-op.
	if email.ProcessingStatus == core.StatusPending {
		email.ProcessingStatus = core.StatusSummarized
	}
	return nil
}

// HasSummaryFor reports whether a summary already exists for the raw email
func (s *MemoryStore) HasSummaryFor(_ context.Context, emailID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sum := range s.summaries {
		if sum.SourceEmailID == emailID {
			return true, nil
		}
	}
	return false, nil
}

// UnclaimedSummaries returns the user's summaries with no digest id and
// importance strictly above the threshold
func (s *MemoryStore) UnclaimedSummaries(_ context.Context, userID string, minImportance int) ([]*core.EmailSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.EmailSummary
	for _, sum := range s.summaries {
		if sum.UserID == userID && sum.DigestID == nil && sum.Importance > minImportance {
			cp := *sum
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// CreateDigestAndClaim persists the digest and claims the given summaries as
// one unit under the store lock
func (s *MemoryStore) CreateDigestAndClaim(_ context.Context, digest *core.Digest, summaryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range summaryIDs {
		sum, ok := s.summaries[id]
		if !ok {
			return fmt.Errorf("summary %s not found", id)
		}
		if sum.DigestID != nil {
			return fmt.Errorf("summary %s already claimed by another digest", id)
		}
	}

	cp := *digest
	s.digests[digest.ID] = &cp
	for _, id := range summaryIDs {
		digestID := digest.ID
		s.summaries[id].DigestID = &digestID
	}
	return nil
}

// MarkDigestSent flips a digest's sent flag
func (s *MemoryStore) MarkDigestSent(_ context.Context, digestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest, ok := s.digests[digestID]
	if !ok {
		return core.ErrNotFound
	}
	digest.IsSent = true
	return nil
}

// UnsentDigests returns the user's digests with is_sent still false
func (s *MemoryStore) UnsentDigests(_ context.Context, userID string) ([]*core.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var digests []*core.Digest
	for _, d := range s.digests {
		if d.UserID == userID && !d.IsSent {
			cp := *d
			digests = append(digests, &cp)
		}
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i].CreatedAt.Before(digests[j].CreatedAt) })
	return digests, nil
}

// SummariesForDigest returns the summaries claimed by a digest
func (s *MemoryStore) SummariesForDigest(_ context.Context, digestID string) ([]*core.EmailSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.EmailSummary
	for _, sum := range s.summaries {
		if sum.DigestID != nil && *sum.DigestID == digestID {
			cp := *sum
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// ActiveSubscribers returns the profiles subscribed to a sender address
func (s *MemoryStore) ActiveSubscribers(_ context.Context, senderEmail string) ([]*core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var profiles []*core.UserProfile
	for _, sub := range s.subscriptions {
		if sub.SenderEmail == senderEmail && sub.IsActive {
			if p, ok := s.profiles[sub.UserID]; ok {
				cp := *p
				profiles = append(profiles, &cp)
			}
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// InsertSubscription persists one allow-list entry
func (s *MemoryStore) InsertSubscription(_ context.Context, sub *core.SenderSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

// LogRun records one pipeline run's outcome
func (s *MemoryStore) LogRun(_ context.Context, entry *core.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.runLogs = append(s.runLogs, &cp)
	return nil
}

// RunLogs returns a copy of all recorded run logs
func (s *MemoryStore) RunLogs() []*core.RunLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]*core.RunLog, 0, len(s.runLogs))
	for _, l := range s.runLogs {
		cp := *l
		logs = append(logs, &cp)
	}
	return logs
}

// RawEmail returns one raw email by id
func (s *MemoryStore) RawEmail(id string) (*core.RawEmail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.rawEmails[id]
	if !ok {
		return nil, false
	}
	cp := *email
	return &cp, true
}

// SummaryCount returns the number of stored summaries
func (s *MemoryStore) SummaryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}

// DigestCount returns the number of stored digests
func (s *MemoryStore) DigestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.digests)
}

// Digest returns one digest by id
func (s *MemoryStore) Digest(id string) (*core.Digest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.digests[id]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}
