package core

import (
	"time"
)

// ProcessingStatus tracks how far a raw email has advanced through the
// pipeline. It only ever moves forward.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusSummarized ProcessingStatus = "summarized"
	StatusProcessed  ProcessingStatus = "processed"
)

// Category classifies a single email's content type
type Category string

const (
	CategoryNewsletter    Category = "Newsletter"
	CategoryPersonal      Category = "Personal"
	CategoryTransactional Category = "Transactional"
	CategoryNoise         Category = "Noise"
)

// ValidCategory reports whether s is one of the known categories
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryNewsletter, CategoryPersonal, CategoryTransactional, CategoryNoise:
		return true
	}
	return false
}

// RawEmail is one ingested message awaiting or having undergone summarization
type RawEmail struct {
	ID               string
	UserID           string
	Sender           string
	Subject          string
	BodyPlain        string
	BodyHTML         string
	ReceivedAt       time.Time
	ProcessingStatus ProcessingStatus
}

// EmailSummary is the stage 1 output for exactly one raw email. DigestID is
// nil until a digest consumes the summary, and is set exactly once.
type EmailSummary struct {
	ID            string
	UserID        string
	SourceEmailID string
	Topic         string
	Summary       string
	Category      Category
	Importance    int
	DigestID      *string
	CreatedAt     time.Time
}

// Trend is one fused insight inside a digest
type Trend struct {
	Title   string `json:"title"`
	Insight string `json:"insight"`
}

// DigestContent is the structured stage 2 payload
type DigestContent struct {
	BigPicture  string   `json:"big_picture"`
	Trends      []Trend  `json:"trends"`
	ActionItems []string `json:"action_items"`
	NoiseFilter string   `json:"noise_filter"`
}

// Digest is one stage 2 synthesis run's output for one user
type Digest struct {
	ID          string
	UserID      string
	UserEmail   string
	SummaryText string
	Content     DigestContent
	PeriodStart time.Time
	PeriodEnd   time.Time
	IsSent      bool
	CreatedAt   time.Time
}

// UserProfile is the subscriber's delivery and persona configuration.
// Owned by the settings surface; the pipeline reads it only.
type UserProfile struct {
	ID             string
	PersonalEmail  string
	TelegramChatID string
	Role           string
	FocusAreas     []string
	DigestDay      string
	DigestTime     string
}

// SenderSubscription is one per-user allow-list entry
type SenderSubscription struct {
	ID          string
	UserID      string
	SenderEmail string
	IsActive    bool
}

// RunStatus is the recorded outcome of one pipeline run
type RunStatus string

const (
	RunSuccess   RunStatus = "success"
	RunNoContent RunStatus = "no_content"
	RunError     RunStatus = "error"
)

// RunLog is one operational trace row per pipeline run
type RunLog struct {
	ID              string
	UserID          string
	Status          RunStatus
	EmailsProcessed int
	ErrorMessage    string
	RanAt           time.Time
}

// ItemInput is what stage 1 sees for one email
type ItemInput struct {
	Sender  string
	Subject string
	Body    string
}

// ItemSummary is the structured record stage 1 must return
type ItemSummary struct {
	Category   Category
	Topic      string
	Summary    string
	Importance int
}

// RunOutcome is what one orchestrator run reports back to its caller
type RunOutcome struct {
	UserID           string
	Status           RunStatus
	EmailsSummarized int
	EmailsSkipped    int
	DigestID         string
	Delivered        bool
}

// ImportanceMin and ImportanceMax bound the 1-5 signal scale
const (
	ImportanceMin = 1
	ImportanceMax = 5
)

// ClampImportance forces a parsed importance into the 1-5 scale
func ClampImportance(n int) int {
	if n < ImportanceMin {
		return ImportanceMin
	}
	if n > ImportanceMax {
		return ImportanceMax
	}
	return n
}
