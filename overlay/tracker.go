package overlay

import (
	"go.viam.com/markerar/logging"
)

// Tracker holds the view matrix the renderer uses. The view only changes when Update selects a
// candidate, so content stays where it was while no marker is visible. A Tracker is not safe for
// concurrent use; the frame loop owns it.
type Tracker struct {
	policy           SelectionPolicy
	rejectDegenerate bool
	logger           logging.Logger

	view     ViewMatrix
	selected *Candidate
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithSelectionPolicy replaces the default last marker wins policy.
func WithSelectionPolicy(policy SelectionPolicy) TrackerOption {
	return func(t *Tracker) {
		if policy != nil {
			t.policy = policy
		}
	}
}

// WithRejectDegenerate sets whether poses that fail ValidatePose are dropped before selection.
// It is on by default.
func WithRejectDegenerate(reject bool) TrackerOption {
	return func(t *Tracker) {
		t.rejectDegenerate = reject
	}
}

// WithInitialView sets the view used until the first marker is seen.
func WithInitialView(view ViewMatrix) TrackerOption {
	return func(t *Tracker) {
		t.view = view
	}
}

// NewTracker returns a tracker starting at the identity view.
func NewTracker(logger logging.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		policy:           DefaultSelectionPolicy(),
		rejectDegenerate: true,
		logger:           logger,
		view:             IdentityView(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update applies the selection policy and, if it picks a candidate, makes that candidate's view
// current. It returns the current view and whether it changed.
func (t *Tracker) Update(candidates []Candidate) (ViewMatrix, bool) {
	if len(candidates) == 0 {
		return t.view, false
	}
	if t.rejectDegenerate {
		kept := candidates[:0:0]
		for _, c := range candidates {
			if err := ValidatePose(c.Pose); err != nil {
				t.logger.Warnw("dropping marker pose", "id", c.Pose.ID, "error", err)
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}
	chosen, ok := t.policy.Select(candidates)
	if !ok {
		return t.view, false
	}
	t.view = chosen.View
	t.selected = &chosen
	t.logger.Debugw("view updated", "id", chosen.Pose.ID, "policy", t.policy.String(), "candidates", len(candidates))
	return t.view, true
}

// View returns the current view.
func (t *Tracker) View() ViewMatrix {
	return t.view
}

// Selected returns the candidate behind the current view, if any marker has been seen.
func (t *Tracker) Selected() (Candidate, bool) {
	if t.selected == nil {
		return Candidate{}, false
	}
	return *t.selected, true
}

// Policy returns the selection policy in use.
func (t *Tracker) Policy() SelectionPolicy {
	return t.policy
}
