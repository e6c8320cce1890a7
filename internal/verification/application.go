// Package verification implements seller and mentor onboarding:
// applications move through review by moderators, and each profile
// carries a single current verification status. Application history is
// immutable; the profile status is the only mutable projection.
package verification

import (
	"errors"
	"time"

	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
)

// Application kinds.
const (
	KindSeller  = "seller"
	KindMentor  = "mentor"
	KindCreator = "creator"
)

var validKinds = map[string]bool{
	KindSeller:  true,
	KindMentor:  true,
	KindCreator: true,
}

// Application is one onboarding request from a user.
type Application struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	UserID     string            `json:"user_id"`
	Kind       string            `json:"kind"`
	Payload    map[string]string `json:"payload,omitempty"`
	Status     lifecycle.State   `json:"status"`
	ReviewerID string            `json:"reviewer_id,omitempty"`
	ReviewNote string            `json:"review_note,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewApplication creates a submitted (pending) application.
func NewApplication(id, tenantID, userID, kind string, payload map[string]string) (*Application, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if tenantID == "" || userID == "" {
		return nil, errors.New("tenant_id and user_id are required")
	}
	if !validKinds[kind] {
		return nil, errors.New("kind must be one of: seller, mentor, creator")
	}

	now := time.Now().UTC()
	app := &Application{
		ID:          id,
		TenantID:    tenantID,
		UserID:      userID,
		Kind:        kind,
		Payload:     payload,
		Status:      lifecycle.StateUnverified,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := app.apply(lifecycle.ActionSubmit); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *Application) apply(action lifecycle.Action) error {
	next, err := lifecycle.ApplicationMachine.Transition(a.Status, action)
	if err != nil {
		return err
	}
	a.Status = next
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// StartReview claims the application for a reviewer.
func (a *Application) StartReview(reviewerID string) error {
	if err := a.apply(lifecycle.ActionStartReview); err != nil {
		return err
	}
	a.ReviewerID = reviewerID
	return nil
}

// Approve accepts the application.
func (a *Application) Approve(reviewerID, note string) error {
	return a.decide(lifecycle.ActionApprove, reviewerID, note)
}

// Reject declines the application.
func (a *Application) Reject(reviewerID, note string) error {
	return a.decide(lifecycle.ActionReject, reviewerID, note)
}

// RequestChanges sends the application back to the applicant.
func (a *Application) RequestChanges(reviewerID, note string) error {
	if err := a.apply(lifecycle.ActionRequestChanges); err != nil {
		return err
	}
	a.ReviewerID = reviewerID
	a.ReviewNote = note
	return nil
}

// Resubmit returns a needs_update application to the review queue with
// a fresh payload.
func (a *Application) Resubmit(payload map[string]string) error {
	if err := a.apply(lifecycle.ActionResubmit); err != nil {
		return err
	}
	if payload != nil {
		a.Payload = payload
	}
	a.SubmittedAt = time.Now().UTC()
	return nil
}

func (a *Application) decide(action lifecycle.Action, reviewerID, note string) error {
	if err := a.apply(action); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.ReviewerID = reviewerID
	a.ReviewNote = note
	a.DecidedAt = &now
	return nil
}

// IsDecided reports whether a final decision was recorded.
func (a *Application) IsDecided() bool {
	return lifecycle.ApplicationMachine.IsTerminal(a.Status)
}

// ProfileStatus is the single current verification status of a user.
type ProfileStatus struct {
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id"`
	Status    lifecycle.State `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}
