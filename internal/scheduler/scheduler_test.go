package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/adapters/store"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/utils"
	"go.uber.org/zap"
)

// stubLLM never produces digest-worthy content so Tick runs stay cheap.
type stubLLM struct{}

func (stubLLM) SummarizeItem(_ context.Context, input *core.ItemInput) (*core.ItemSummary, error) {
	return &core.ItemSummary{Category: core.CategoryNoise, Topic: input.Subject, Summary: "noise", Importance: 1}, nil
}

func (stubLLM) SynthesizeDigest(_ context.Context, _ []*core.EmailSummary, _ *core.UserProfile) (*core.DigestContent, error) {
	return &core.DigestContent{BigPicture: "quiet week"}, nil
}

// sundayMorning is a known Sunday at 08:00 UTC.
var sundayMorning = time.Date(2024, 11, 17, 8, 0, 0, 0, time.UTC)

func TestEligible(t *testing.T) {
	tests := []struct {
		name string
		day  string
		hour string
		now  time.Time
		want bool
	}{
		{"matching slot", "Sunday", "08:00", sundayMorning, true},
		{"wrong day", "Monday", "08:00", sundayMorning, false},
		{"wrong hour", "Sunday", "09:00", sundayMorning, false},
		{"empty day", "", "08:00", sundayMorning, false},
		{"empty time", "Sunday", "", sundayMorning, false},
		{"mid-hour tick still matches", "Sunday", "08:00", sundayMorning.Add(25 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &core.UserProfile{ID: "u", DigestDay: tt.day, DigestTime: tt.hour}
			if got := Eligible(p, tt.now); got != tt.want {
				t.Errorf("Eligible(%s %s at %s) = %t, want %t", tt.day, tt.hour, tt.now, got, tt.want)
			}
		})
	}
}

func TestTickRunsOnlyEligibleUsers(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	st.UpsertProfile(ctx, &core.UserProfile{ID: "u-sunday", DigestDay: "Sunday", DigestTime: "08:00"})
	st.UpsertProfile(ctx, &core.UserProfile{ID: "u-monday", DigestDay: "Monday", DigestTime: "08:00"})
	st.UpsertProfile(ctx, &core.UserProfile{ID: "u-evening", DigestDay: "Sunday", DigestTime: "18:00"})

	logger := zap.NewNop()
	pipeline := core.NewPipelineService(stubLLM{}, st, core.NewDispatcher(nil, logger), logger, utils.NewTextProcessor(logger), 8000, 2, 7)

	s := New(pipeline, st, logger, 4)
	s.SetClock(func() time.Time { return sundayMorning })
	s.Tick(ctx)

	logs := st.RunLogs()
	if len(logs) != 1 {
		t.Fatalf("run logs = %d, want 1 (only the matching slot)", len(logs))
	}
	if logs[0].UserID != "u-sunday" {
		t.Errorf("ran user %s, want u-sunday", logs[0].UserID)
	}
}

func TestTickRunsAllMatchingUsersConcurrently(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		st.UpsertProfile(ctx, &core.UserProfile{ID: id, DigestDay: "Sunday", DigestTime: "08:00"})
	}

	logger := zap.NewNop()
	pipeline := core.NewPipelineService(stubLLM{}, st, core.NewDispatcher(nil, logger), logger, utils.NewTextProcessor(logger), 8000, 2, 7)

	// Pool smaller than the user count: every user must still run.
	s := New(pipeline, st, logger, 2)
	s.SetClock(func() time.Time { return sundayMorning })
	s.Tick(ctx)

	logs := st.RunLogs()
	if len(logs) != 5 {
		t.Fatalf("run logs = %d, want 5", len(logs))
	}
	seen := make(map[string]bool)
	for _, l := range logs {
		seen[l.UserID] = true
	}
	if len(seen) != 5 {
		t.Errorf("distinct users run = %d, want 5", len(seen))
	}
}

func TestTickWithNoProfilesIsQuiet(t *testing.T) {
	st := store.NewMemoryStore()
	logger := zap.NewNop()
	pipeline := core.NewPipelineService(stubLLM{}, st, core.NewDispatcher(nil, logger), logger, utils.NewTextProcessor(logger), 8000, 2, 7)

	s := New(pipeline, st, logger, 2)
	s.SetClock(func() time.Time { return sundayMorning })
	s.Tick(context.Background())

	if logs := st.RunLogs(); len(logs) != 0 {
		t.Errorf("run logs = %d, want 0", len(logs))
	}
}
