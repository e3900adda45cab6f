package prefs

import (
	"context"

	"mergington/internal/types"
)

// Evaluator answers the single question "should this identity receive this
// category of email right now". It is the only component that interprets
// the suppression semantics of a preference record.
type Evaluator struct {
	store  Store
	logger types.Logger
}

// NewEvaluator creates an Evaluator backed by the given store.
func NewEvaluator(store Store, logger types.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		logger: logger,
	}
}

// ShouldSend evaluates the short-circuit chain for one identity and category.
//
// Decision logic (in order of precedence):
//  1. Enabled=false or Frequency=disabled -> suppress everything.
//  2. DigestOnly=true -> suppress everything except weekly_digest.
//  3. Per-category toggle decides; unknown categories are allowed.
//
// A store failure fails open: the recipient gets the email rather than
// silently losing a confirmation.
func (e *Evaluator) ShouldSend(ctx context.Context, email string, category types.Category) bool {
	p, err := e.store.Get(ctx, email)
	if err != nil {
		e.logger.Error("preference lookup failed, delivering anyway",
			"email", email,
			"category", string(category),
			"error", err.Error(),
		)
		return true
	}

	if !p.Enabled || p.Frequency == types.FrequencyDisabled {
		return false
	}

	if p.DigestOnly && category != types.CategoryWeeklyDigest {
		return false
	}

	return p.CategoryEnabled(category)
}
