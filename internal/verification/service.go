package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dev-analyshd/main-albash-sub001/internal/audit"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/events"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
)

// ErrCooldownActive is returned when a rejected applicant reapplies
// before the cooldown window lapses.
type ErrCooldownActive struct {
	RetryAfter time.Time
}

func (e *ErrCooldownActive) Error() string {
	return fmt.Sprintf("a rejected application blocks reapplying until %s", e.RetryAfter.Format(time.RFC3339))
}

// Policy holds the review process deadlines.
type Policy struct {
	// RejectionCooldown is how long a rejected applicant must wait
	// before submitting a fresh application of the same kind.
	RejectionCooldown time.Duration `envconfig:"VERIFICATION_REJECTION_COOLDOWN" default:"720h"`
}

// Service manages verification applications and profile statuses.
type Service struct {
	store     Store
	auditor   audit.Store
	publisher events.Publisher
	policy    Policy
	logger    *slog.Logger
}

// NewService creates a new verification service.
func NewService(store Store, auditor audit.Store, publisher events.Publisher, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		auditor:   auditor,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
	}
}

// Submit creates a pending application. A rejection of the same kind
// inside the cooldown window blocks a fresh submission; an undecided
// application of the same kind blocks one outright.
func (s *Service) Submit(ctx context.Context, tenantID, userID, kind string, payload map[string]string) (*Application, error) {
	latest, err := s.store.LatestApplication(ctx, tenantID, userID, kind)
	if err != nil && !database.IsNotFound(err) {
		return nil, fmt.Errorf("lookup latest application: %w", err)
	}
	if latest != nil {
		if !latest.IsDecided() {
			return nil, fmt.Errorf("an application of kind %q is already open", kind)
		}
		if latest.Status == lifecycle.StateApproved {
			return nil, fmt.Errorf("an application of kind %q is already approved", kind)
		}
		if latest.Status == lifecycle.StateRejected && latest.DecidedAt != nil {
			retryAfter := latest.DecidedAt.Add(s.policy.RejectionCooldown)
			if time.Now().UTC().Before(retryAfter) {
				return nil, &ErrCooldownActive{RetryAfter: retryAfter}
			}
		}
	}

	app, err := NewApplication(ulid.Make().String(), tenantID, userID, kind, payload)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("store application: %w", err)
	}

	// A profile verified through an earlier application keeps its
	// status; only unverified and rejected profiles move to pending.
	if ps, err := s.ProfileStatus(ctx, tenantID, userID); err == nil {
		if ps.Status == lifecycle.StateUnverified || ps.Status == lifecycle.StateRejected {
			s.bumpProfile(ctx, tenantID, userID, lifecycle.StatePending)
		}
	}

	s.record(ctx, app, userID, "verification.submit", string(lifecycle.StateUnverified))
	s.publish(ctx, events.EventApplicationSubmitted, app)

	s.logger.Info("application submitted",
		"application_id", app.ID,
		"user_id", userID,
		"kind", kind,
	)

	return app, nil
}

// Get returns an application by ID.
func (s *Service) Get(ctx context.Context, tenantID, appID string) (*Application, error) {
	return s.store.GetApplication(ctx, tenantID, appID)
}

// List returns applications with the total matching count.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Application, int, error) {
	return s.store.ListApplications(ctx, tenantID, filter)
}

// StartReview claims an application for a reviewer.
func (s *Service) StartReview(ctx context.Context, tenantID, appID, reviewerID string) (*Application, error) {
	return s.review(ctx, tenantID, appID, reviewerID, "verification.start_review", events.EventApplicationInReview, nil,
		func(app *Application) error { return app.StartReview(reviewerID) })
}

// Approve accepts an application and marks the profile verified.
func (s *Service) Approve(ctx context.Context, tenantID, appID, reviewerID, note string) (*Application, error) {
	verified := lifecycle.StateVerified
	return s.review(ctx, tenantID, appID, reviewerID, "verification.approve", events.EventApplicationApproved, &verified,
		func(app *Application) error { return app.Approve(reviewerID, note) })
}

// Reject declines an application. The applicant may reapply once the
// cooldown window lapses.
func (s *Service) Reject(ctx context.Context, tenantID, appID, reviewerID, note string) (*Application, error) {
	rejected := lifecycle.StateRejected
	return s.review(ctx, tenantID, appID, reviewerID, "verification.reject", events.EventApplicationRejected, &rejected,
		func(app *Application) error { return app.Reject(reviewerID, note) })
}

// RequestChanges sends an application back to the applicant.
func (s *Service) RequestChanges(ctx context.Context, tenantID, appID, reviewerID, note string) (*Application, error) {
	return s.review(ctx, tenantID, appID, reviewerID, "verification.request_changes", events.EventApplicationNeedsFixes, nil,
		func(app *Application) error { return app.RequestChanges(reviewerID, note) })
}

// Resubmit returns a needs_update application to the queue.
func (s *Service) Resubmit(ctx context.Context, tenantID, appID, userID string, payload map[string]string) (*Application, error) {
	app, err := s.store.GetApplication(ctx, tenantID, appID)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, fmt.Errorf("application %s does not belong to user %s", appID, userID)
	}

	before := app.Status
	if err := app.Resubmit(payload); err != nil {
		return nil, err
	}
	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	s.record(ctx, app, userID, "verification.resubmit", string(before))
	s.publish(ctx, events.EventApplicationSubmitted, app)
	return app, nil
}

// ProfileStatus returns a user's current verification status. Users
// with no history are unverified.
func (s *Service) ProfileStatus(ctx context.Context, tenantID, userID string) (*ProfileStatus, error) {
	ps, err := s.store.GetProfileStatus(ctx, tenantID, userID)
	if database.IsNotFound(err) {
		return &ProfileStatus{
			TenantID: tenantID,
			UserID:   userID,
			Status:   lifecycle.StateUnverified,
		}, nil
	}
	return ps, err
}

// Suspend revokes a verified profile.
func (s *Service) Suspend(ctx context.Context, tenantID, userID, adminID, note string) (*ProfileStatus, error) {
	return s.moveProfile(ctx, tenantID, userID, adminID, note, lifecycle.ActionSuspend, "verification.suspend", events.EventProfileSuspended)
}

// Reinstate restores a suspended profile to verified.
func (s *Service) Reinstate(ctx context.Context, tenantID, userID, adminID, note string) (*ProfileStatus, error) {
	return s.moveProfile(ctx, tenantID, userID, adminID, note, lifecycle.ActionReinstate, "verification.reinstate", events.EventProfileReinstated)
}

// review loads, mutates, persists, and reports one reviewer action.
// profileStatus, when set, is pushed to the applicant's profile row.
func (s *Service) review(ctx context.Context, tenantID, appID, reviewerID, action string, eventType events.Type, profileStatus *lifecycle.State, fn func(*Application) error) (*Application, error) {
	app, err := s.store.GetApplication(ctx, tenantID, appID)
	if err != nil {
		return nil, err
	}

	before := app.Status
	if err := fn(app); err != nil {
		return nil, err
	}

	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if profileStatus != nil {
		s.bumpProfile(ctx, tenantID, app.UserID, *profileStatus)
	}

	s.record(ctx, app, reviewerID, action, string(before))
	s.publish(ctx, eventType, app)

	s.logger.Info("application reviewed",
		"application_id", app.ID,
		"from", before,
		"to", app.Status,
		"reviewer_id", reviewerID,
	)

	return app, nil
}

// moveProfile drives the profile verification machine directly for
// admin suspend/reinstate actions.
func (s *Service) moveProfile(ctx context.Context, tenantID, userID, adminID, note string, action lifecycle.Action, auditAction string, eventType events.Type) (*ProfileStatus, error) {
	ps, err := s.ProfileStatus(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	before := ps.Status
	next, err := lifecycle.VerificationMachine.Transition(ps.Status, action)
	if err != nil {
		return nil, err
	}
	ps.Status = next
	ps.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertProfileStatus(ctx, ps); err != nil {
		return nil, fmt.Errorf("update profile status: %w", err)
	}

	entry := audit.NewEntry(tenantID, adminID, auditAction, "profile", userID, string(before), string(ps.Status), note)
	if err := s.auditor.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry", "user_id", userID, "action", auditAction, "error", err)
	}

	data := events.VerificationUpdateData{
		UserID: userID,
		Status: string(ps.Status),
	}
	if env, err := events.NewEnvelope(eventType, tenantID, userID, data); err == nil {
		if err := s.publisher.Publish(ctx, events.SubjectVerificationUpdate, env); err != nil {
			s.logger.Error("failed to publish profile event", "error", err, "type", eventType)
		}
	}

	s.logger.Info("profile status changed",
		"user_id", userID,
		"from", before,
		"to", ps.Status,
		"admin_id", adminID,
	)

	return ps, nil
}

// bumpProfile writes the profile projection without machine checks.
// Used when an application decision implies the profile state.
func (s *Service) bumpProfile(ctx context.Context, tenantID, userID string, status lifecycle.State) {
	ps := &ProfileStatus{
		TenantID:  tenantID,
		UserID:    userID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertProfileStatus(ctx, ps); err != nil {
		s.logger.Error("failed to update profile status", "user_id", userID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, app *Application, actorID, action, fromStatus string) {
	entry := audit.NewEntry(app.TenantID, actorID, action, "verification_application", app.ID, fromStatus, string(app.Status), app.ReviewNote)
	if err := s.auditor.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry", "application_id", app.ID, "action", action, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, eventType events.Type, app *Application) {
	data := events.VerificationUpdateData{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Kind:          app.Kind,
		Status:        string(app.Status),
		ReviewerID:    app.ReviewerID,
	}
	if env, err := events.NewEnvelope(eventType, app.TenantID, app.ID, data); err == nil {
		if err := s.publisher.Publish(ctx, events.SubjectVerificationUpdate, env); err != nil {
			s.logger.Error("failed to publish verification event", "error", err, "type", eventType)
		}
	}
}
