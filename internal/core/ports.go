package core

import (
	"context"
	"errors"
)

// ErrMalformedOutput marks an LLM response that did not parse into the
// expected structured record. The orchestrator treats it like a transient
// failure: skip the item and retry on a later run.
var ErrMalformedOutput = errors.New("malformed llm output")

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("record not found")

// LLMClient defines the interface to the external text-generation service.
// Both stages of the pipeline go through it.
type LLMClient interface {
	// SummarizeItem turns one email's text into a scored structured summary
	SummarizeItem(ctx context.Context, input *ItemInput) (*ItemSummary, error)

	// SynthesizeDigest fuses the week's high-signal summaries into one digest
	SynthesizeDigest(ctx context.Context, summaries []*EmailSummary, profile *UserProfile) (*DigestContent, error)
}

// Store defines the persistence boundary for the five record sets plus run logs
type Store interface {
	// GetProfile returns a user's profile, or ErrNotFound
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)

	// ListProfiles returns every user profile
	ListProfiles(ctx context.Context) ([]*UserProfile, error)

	// UpsertProfile inserts or replaces a user profile. Profile content is
	// owned by the settings surface; the pipeline never calls this.
	UpsertProfile(ctx context.Context, profile *UserProfile) error

	// InsertRawEmail persists a newly ingested message
	InsertRawEmail(ctx context.Context, email *RawEmail) error

	// PendingRawEmails returns the user's emails not yet carrying a summary
	PendingRawEmails(ctx context.Context, userID string) ([]*RawEmail, error)

	// InsertSummary persists a stage 1 result
	InsertSummary(ctx context.Context, summary *EmailSummary) error

	// MarkEmailSummarized advances a raw email from pending to summarized.
	// Advancing an already-summarized email is a no-op.
	MarkEmailSummarized(ctx context.Context, emailID string) error

	// HasSummaryFor reports whether a summary already exists for the raw email
	HasSummaryFor(ctx context.Context, emailID string) (bool, error)

	// UnclaimedSummaries returns the user's summaries with no digest id and
	// importance strictly greater than minImportance
	UnclaimedSummaries(ctx context.Context, userID string, minImportance int) ([]*EmailSummary, error)

	// CreateDigestAndClaim persists the digest and stamps its id onto exactly
	// the given summaries as one atomic unit
	CreateDigestAndClaim(ctx context.Context, digest *Digest, summaryIDs []string) error

	// MarkDigestSent flips a digest's sent flag after a successful delivery
	MarkDigestSent(ctx context.Context, digestID string) error

	// UnsentDigests returns the user's digests with is_sent still false
	UnsentDigests(ctx context.Context, userID string) ([]*Digest, error)

	// SummariesForDigest returns the summaries claimed by a digest
	SummariesForDigest(ctx context.Context, digestID string) ([]*EmailSummary, error)

	// ActiveSubscribers returns the profiles subscribed to a sender address
	ActiveSubscribers(ctx context.Context, senderEmail string) ([]*UserProfile, error)

	// InsertSubscription persists one allow-list entry
	InsertSubscription(ctx context.Context, sub *SenderSubscription) error

	// LogRun records one pipeline run's outcome
	LogRun(ctx context.Context, entry *RunLog) error
}

// Channel is one delivery transport for a finished digest
type Channel interface {
	// Name identifies the channel in outcomes and logs
	Name() string

	// Send delivers the digest to the profile's address on this channel
	Send(ctx context.Context, digest *Digest, profile *UserProfile) error
}
