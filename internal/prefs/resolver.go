package prefs

import (
	"context"

	"mergington/internal/types"
)

// Resolver determines the full recipient set for a notification: the primary
// identity, an optional parent CC, and preference-based filtering of
// broadcast lists.
type Resolver struct {
	store     Store
	evaluator *Evaluator
}

// NewResolver creates a Resolver sharing the evaluator's store.
func NewResolver(store Store, evaluator *Evaluator) *Resolver {
	return &Resolver{
		store:     store,
		evaluator: evaluator,
	}
}

// ResolveCc returns the parent email to CC for individual notifications.
// A CC happens only when the identity has parent CC enabled AND a parent
// email on file. Broadcast categories never use this.
func (r *Resolver) ResolveCc(ctx context.Context, email string) (string, bool) {
	p, err := r.store.Get(ctx, email)
	if err != nil {
		return "", false
	}
	if !p.ParentCcEnabled || p.ParentEmail == "" {
		return "", false
	}
	return p.ParentEmail, true
}

// FilterRecipients returns the order-preserving subsequence of identities
// that should receive the given category. Duplicates in the input are
// preserved as-is; callers own de-duplication semantics.
func (r *Resolver) FilterRecipients(ctx context.Context, emails []string, category types.Category) []string {
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		if r.evaluator.ShouldSend(ctx, email, category) {
			out = append(out, email)
		}
	}
	return out
}
