package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sundaylabs/sunday-digest/internal/utils"
	"go.uber.org/zap"
)

// PipelineService drives one user's two-stage summarization pipeline:
// summarize each pending raw email, gate by importance, synthesize a digest,
// claim the consumed summaries, then hand off to delivery. All external-call
// failures are contained here; a bad email or a bad synthesis run never
// crosses a user boundary.
type PipelineService struct {
	llm                 LLMClient
	store               Store
	dispatcher          *Dispatcher
	logger              *zap.Logger
	textProcessor       *utils.TextProcessor
	maxBodyChars        int
	importanceThreshold int
	digestPeriod        time.Duration
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	llm LLMClient,
	store Store,
	dispatcher *Dispatcher,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	maxBodyChars int,
	importanceThreshold int,
	digestPeriodDays int,
) *PipelineService {
	if maxBodyChars <= 0 {
		maxBodyChars = 8000
	}
	if digestPeriodDays <= 0 {
		digestPeriodDays = 7
	}
	return &PipelineService{
		llm:                 llm,
		store:               store,
		dispatcher:          dispatcher,
		logger:              logger,
		textProcessor:       textProcessor,
		maxBodyChars:        maxBodyChars,
		importanceThreshold: importanceThreshold,
		digestPeriod:        time.Duration(digestPeriodDays) * 24 * time.Hour,
	}
}

// Run executes the full per-user pipeline once. A manual trigger and a
// scheduled trigger both land here and behave identically.
func (s *PipelineService) Run(ctx context.Context, userID string) (*RunOutcome, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("Profile missing, aborting run for user", zap.String("user_id", userID))
		}
		return nil, fmt.Errorf("load profile for %s: %w", userID, err)
	}

	outcome := &RunOutcome{UserID: userID, Status: RunNoContent}

	s.summarizePending(ctx, profile, outcome)

	eligible, err := s.store.UnclaimedSummaries(ctx, userID, s.importanceThreshold)
	if err != nil {
		s.logRun(ctx, userID, RunError, outcome.EmailsSummarized, err.Error())
		return outcome, fmt.Errorf("query unclaimed summaries: %w", err)
	}

	if len(eligible) == 0 {
		s.logger.Info("Not enough high-signal content for a digest",
			zap.String("user_id", userID),
			zap.Int("emails_summarized", outcome.EmailsSummarized))
		s.logRun(ctx, userID, RunNoContent, outcome.EmailsSummarized, "")
		return outcome, nil
	}

	content, err := s.llm.SynthesizeDigest(ctx, eligible, profile)
	if err != nil {
		// Summaries stay unclaimed and roll into the next run.
		s.logger.Warn("Digest synthesis failed, summaries remain pending",
			zap.String("user_id", userID),
			zap.Int("eligible_summaries", len(eligible)),
			zap.Error(err))
		outcome.Status = RunError
		s.logRun(ctx, userID, RunError, outcome.EmailsSummarized, err.Error())
		return outcome, nil
	}

	now := time.Now().UTC()
	digest := &Digest{
		ID:          uuid.NewString(),
		UserID:      userID,
		UserEmail:   profile.PersonalEmail,
		SummaryText: content.BigPicture,
		Content:     *content,
		PeriodStart: now.Add(-s.digestPeriod),
		PeriodEnd:   now,
		IsSent:      false,
		CreatedAt:   now,
	}

	summaryIDs := make([]string, len(eligible))
	for i, sum := range eligible {
		summaryIDs[i] = sum.ID
	}

	if err := s.store.CreateDigestAndClaim(ctx, digest, summaryIDs); err != nil {
		s.logRun(ctx, userID, RunError, outcome.EmailsSummarized, err.Error())
		return outcome, fmt.Errorf("persist digest: %w", err)
	}

	outcome.Status = RunSuccess
	outcome.DigestID = digest.ID
	s.logger.Info("Digest created",
		zap.String("user_id", userID),
		zap.String("digest_id", digest.ID),
		zap.Int("summaries_claimed", len(summaryIDs)))

	// Delivery problems never unwind summarization state.
	outcome.Delivered = s.deliver(ctx, digest, profile)

	s.logRun(ctx, userID, RunSuccess, outcome.EmailsSummarized, "")
	return outcome, nil
}

// summarizePending runs stage 1 over every raw email that does not yet carry
// a summary. One bad email must not abort the batch.
func (s *PipelineService) summarizePending(ctx context.Context, profile *UserProfile, outcome *RunOutcome) {
	emails, err := s.store.PendingRawEmails(ctx, profile.ID)
	if err != nil {
		s.logger.Error("Failed to query pending emails", zap.String("user_id", profile.ID), zap.Error(err))
		return
	}

	for _, email := range emails {
		if err := s.summarizeOne(ctx, email); err != nil {
			// Status stays pending so the next run retries this email.
			outcome.EmailsSkipped++
			s.logger.Warn("Skipping email, will retry next run",
				zap.String("user_id", profile.ID),
				zap.String("email_id", email.ID),
				zap.String("sender", email.Sender),
				zap.Error(err))
			continue
		}
		outcome.EmailsSummarized++
	}
}

func (s *PipelineService) summarizeOne(ctx context.Context, email *RawEmail) error {
	// A concurrent run may have advanced this email already; converging on
	// the same target state is fine, duplicating the summary is not.
	exists, err := s.store.HasSummaryFor(ctx, email.ID)
	if err != nil {
		return fmt.Errorf("check existing summary: %w", err)
	}
	if exists {
		return s.store.MarkEmailSummarized(ctx, email.ID)
	}

	body := email.BodyPlain
	if strings.TrimSpace(body) == "" {
		body = utils.StripHTML(email.BodyHTML)
	}

	input := &ItemInput{
		Sender:  email.Sender,
		Subject: email.Subject,
		Body:    s.textProcessor.ProcessText(body, s.maxBodyChars),
	}

	item, err := s.llm.SummarizeItem(ctx, input)
	if err != nil {
		return fmt.Errorf("summarize item: %w", err)
	}

	summary := &EmailSummary{
		ID:            uuid.NewString(),
		UserID:        email.UserID,
		SourceEmailID: email.ID,
		Topic:         item.Topic,
		Summary:       item.Summary,
		Category:      item.Category,
		Importance:    item.Importance,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.InsertSummary(ctx, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	return s.store.MarkEmailSummarized(ctx, email.ID)
}

// deliver dispatches the digest and records the sent flag when at least one
// channel succeeded.
func (s *PipelineService) deliver(ctx context.Context, digest *Digest, profile *UserProfile) bool {
	outcomes := s.dispatcher.Dispatch(ctx, digest, profile)
	if !Delivered(outcomes) {
		s.logger.Warn("No delivery channel succeeded, digest left unsent",
			zap.String("user_id", profile.ID),
			zap.String("digest_id", digest.ID))
		return false
	}

	if err := s.store.MarkDigestSent(ctx, digest.ID); err != nil {
		s.logger.Error("Failed to record sent flag",
			zap.String("digest_id", digest.ID),
			zap.Error(err))
		return false
	}
	digest.IsSent = true
	return true
}

// RedeliverUnsent retries delivery of digests that were created but never
// reached any channel. Summarization is not re-run.
func (s *PipelineService) RedeliverUnsent(ctx context.Context, userID string) (int, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load profile for %s: %w", userID, err)
	}

	digests, err := s.store.UnsentDigests(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("query unsent digests: %w", err)
	}

	delivered := 0
	for _, digest := range digests {
		if s.deliver(ctx, digest, profile) {
			delivered++
		}
	}
	return delivered, nil
}

func (s *PipelineService) logRun(ctx context.Context, userID string, status RunStatus, processed int, errMsg string) {
	entry := &RunLog{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          status,
		EmailsProcessed: processed,
		ErrorMessage:    errMsg,
		RanAt:           time.Now().UTC(),
	}
	if err := s.store.LogRun(ctx, entry); err != nil {
		s.logger.Error("Failed to write run log", zap.String("user_id", userID), zap.Error(err))
	}
}
