package prefs

import (
	"context"
	"errors"
	"testing"

	"mergington/internal/types"
)

// testLogger implements types.Logger as a no-op for tests.
type testLogger struct{}

func (l *testLogger) Info(msg string, args ...any)  {}
func (l *testLogger) Error(msg string, args ...any) {}
func (l *testLogger) Warn(msg string, args ...any)  {}
func (l *testLogger) With(args ...any) types.Logger { return l }

func newTestEvaluator() (*Evaluator, *MemoryStore) {
	store := NewMemoryStore()
	return NewEvaluator(store, &testLogger{}), store
}

func TestShouldSendDefaultsAllowEverything(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator()

	for _, c := range types.AllCategories {
		if !eval.ShouldSend(ctx, "new.student@mergington.edu", c) {
			t.Errorf("expected default record to allow %s", c)
		}
	}
}

func TestShouldSendGlobalKillSwitchWins(t *testing.T) {
	ctx := context.Background()
	eval, store := newTestEvaluator()

	p, _ := store.Get(ctx, "liam@mergington.edu")
	p.Enabled = false
	// Every category toggle stays true; the kill switch must still win.
	_ = store.Put(ctx, "liam@mergington.edu", p)

	for _, c := range types.AllCategories {
		if eval.ShouldSend(ctx, "liam@mergington.edu", c) {
			t.Errorf("enabled=false must suppress %s", c)
		}
	}
}

func TestShouldSendDisabledFrequencyEqualsKillSwitch(t *testing.T) {
	ctx := context.Background()
	eval, store := newTestEvaluator()

	p, _ := store.Get(ctx, "noah@mergington.edu")
	p.Frequency = types.FrequencyDisabled
	_ = store.Put(ctx, "noah@mergington.edu", p)

	for _, c := range types.AllCategories {
		if eval.ShouldSend(ctx, "noah@mergington.edu", c) {
			t.Errorf("frequency=disabled must suppress %s", c)
		}
	}
}

func TestShouldSendDigestOnly(t *testing.T) {
	ctx := context.Background()
	eval, store := newTestEvaluator()

	p, _ := store.Get(ctx, "emma@mergington.edu")
	p.DigestOnly = true
	_ = store.Put(ctx, "emma@mergington.edu", p)

	for _, c := range types.AllCategories {
		want := c == types.CategoryWeeklyDigest
		if got := eval.ShouldSend(ctx, "emma@mergington.edu", c); got != want {
			t.Errorf("digest_only: category %s got %v, want %v", c, got, want)
		}
	}
}

func TestShouldSendDigestOnlyRespectsDigestToggle(t *testing.T) {
	// digest_only narrows to the weekly digest, but the digest still goes
	// through its own category toggle.
	ctx := context.Background()
	eval, store := newTestEvaluator()

	p, _ := store.Get(ctx, "ava@mergington.edu")
	p.DigestOnly = true
	p.WeeklyDigest = false
	_ = store.Put(ctx, "ava@mergington.edu", p)

	if eval.ShouldSend(ctx, "ava@mergington.edu", types.CategoryWeeklyDigest) {
		t.Error("digest_only with weekly_digest=false must suppress the digest")
	}
}

func TestShouldSendPerCategoryToggle(t *testing.T) {
	ctx := context.Background()
	eval, store := newTestEvaluator()

	p, _ := store.Get(ctx, "mia@mergington.edu")
	p.Reminders = false
	_ = store.Put(ctx, "mia@mergington.edu", p)

	if eval.ShouldSend(ctx, "mia@mergington.edu", types.CategoryReminders) {
		t.Error("reminders toggle off must suppress reminders")
	}
	if !eval.ShouldSend(ctx, "mia@mergington.edu", types.CategorySignupConfirmation) {
		t.Error("other categories must be unaffected")
	}
}

func TestShouldSendUnknownCategoryAllowed(t *testing.T) {
	ctx := context.Background()
	eval, store := newTestEvaluator()

	if !eval.ShouldSend(ctx, "zoe@mergington.edu", types.Category("brand_new_kind")) {
		t.Error("unknown categories must default to allowed")
	}

	// But the kill switches still apply to unknown categories.
	p, _ := store.Get(ctx, "zoe@mergington.edu")
	p.Enabled = false
	_ = store.Put(ctx, "zoe@mergington.edu", p)
	if eval.ShouldSend(ctx, "zoe@mergington.edu", types.Category("brand_new_kind")) {
		t.Error("kill switch must suppress unknown categories too")
	}
}

// failingStore returns an error from Get to exercise the fail-open path.
type failingStore struct{ MemoryStore }

func (f *failingStore) Get(_ context.Context, _ string) (types.Preferences, error) {
	return types.Preferences{}, errors.New("store unavailable")
}

func TestShouldSendFailsOpenOnStoreError(t *testing.T) {
	eval := NewEvaluator(&failingStore{}, &testLogger{})
	if !eval.ShouldSend(context.Background(), "x@mergington.edu", types.CategoryReminders) {
		t.Error("store errors must fail open")
	}
}
