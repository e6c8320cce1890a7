package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/events"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
)

// Service manages stored payment methods and fee quotes.
type Service struct {
	store      MethodStore
	calculator *Calculator
	publisher  events.Publisher
	logger     *slog.Logger
}

// NewService creates a new payments service.
func NewService(store MethodStore, calculator *Calculator, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		calculator: calculator,
		publisher:  publisher,
		logger:     logger,
	}
}

// AddMethodRequest is the request to store a payment method.
type AddMethodRequest struct {
	TenantID    string
	UserID      string
	Kind        Kind
	Label       string
	Instrument  string
	Metadata    map[string]string
	MakeDefault bool
}

// AddMethod validates and stores a new payment method. The raw
// instrument is discarded after validation.
func (s *Service) AddMethod(ctx context.Context, req AddMethodRequest) (*MethodDescriptor, error) {
	method, err := NewMethodDescriptor(
		ulid.Make().String(),
		req.TenantID,
		req.UserID,
		req.Kind,
		req.Label,
		req.Instrument,
		req.Metadata,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("store payment method: %w", err)
	}

	if req.MakeDefault {
		if err := s.store.SetDefault(ctx, req.TenantID, req.UserID, method.ID); err != nil {
			return nil, fmt.Errorf("set default: %w", err)
		}
		method.IsDefault = true
	}

	s.publish(ctx, events.EventPaymentMethodAdded, method)

	s.logger.Info("payment method added",
		"method_id", method.ID,
		"user_id", method.UserID,
		"kind", method.Kind,
	)

	return method, nil
}

// ListMethods returns a user's stored payment methods.
func (s *Service) ListMethods(ctx context.Context, tenantID, userID string) ([]*MethodDescriptor, error) {
	return s.store.ListByUser(ctx, tenantID, userID)
}

// SetDefaultMethod makes the given method the user's default.
func (s *Service) SetDefaultMethod(ctx context.Context, tenantID, userID, methodID string) error {
	if err := s.store.SetDefault(ctx, tenantID, userID, methodID); err != nil {
		return err
	}

	method, err := s.store.Get(ctx, tenantID, methodID)
	if err == nil {
		s.publish(ctx, events.EventPaymentMethodDefault, method)
	}
	return nil
}

// RemoveMethod deletes a stored payment method.
func (s *Service) RemoveMethod(ctx context.Context, tenantID, methodID string) error {
	method, err := s.store.Get(ctx, tenantID, methodID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, tenantID, methodID); err != nil {
		return err
	}

	s.publish(ctx, events.EventPaymentMethodRemoved, method)

	s.logger.Info("payment method removed",
		"method_id", methodID,
		"user_id", method.UserID,
	)

	return nil
}

// QuoteFee computes a fee quote for charging amount via method.
func (s *Service) QuoteFee(ctx context.Context, amount money.Money, method Method) (Quote, error) {
	return s.calculator.Calculate(amount, method)
}

func (s *Service) publish(ctx context.Context, eventType events.Type, method *MethodDescriptor) {
	data := events.PaymentMethodData{
		MethodID: method.ID,
		UserID:   method.UserID,
		Kind:     string(method.Kind),
		LastFour: method.LastFour,
	}
	if env, err := events.NewEnvelope(eventType, method.TenantID, method.ID, data); err == nil {
		if err := s.publisher.Publish(ctx, events.SubjectPaymentMethods, env); err != nil {
			s.logger.Error("failed to publish payment method event", "error", err, "type", eventType)
		}
	}
}
