package payments

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a stored payment method.
type Kind string

const (
	KindCard         Kind = "card"
	KindBank         Kind = "bank"
	KindCryptoWallet Kind = "crypto_wallet"
)

// MethodDescriptor is a user's stored payment method. Only masked,
// non-sensitive data is kept: the raw instrument is validated at
// creation and reduced to its last four characters.
type MethodDescriptor struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id"`
	Kind      Kind              `json:"kind"`
	Label     string            `json:"label"`
	LastFour  string            `json:"last_four"`
	IsDefault bool              `json:"is_default"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ErrInvalidInstrument is returned when the raw instrument fails
// validation for its kind.
var ErrInvalidInstrument = errors.New("invalid payment instrument")

// NewMethodDescriptor validates the raw instrument for its kind and
// builds a descriptor holding only derived, maskable data. For crypto
// wallets the chain is read from metadata["chain"] (default ethereum).
func NewMethodDescriptor(id, tenantID, userID string, kind Kind, label, instrument string, metadata map[string]string) (*MethodDescriptor, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if tenantID == "" {
		return nil, errors.New("tenant_id is required")
	}
	if userID == "" {
		return nil, errors.New("user_id is required")
	}

	if metadata == nil {
		metadata = make(map[string]string)
	}

	var lastFour string
	switch kind {
	case KindCard:
		if !ValidateCardNumber(instrument) {
			return nil, fmt.Errorf("%w: card number failed checksum", ErrInvalidInstrument)
		}
		digits := digitsOnly(instrument)
		lastFour = digits[len(digits)-4:]
		metadata["card_type"] = string(DetectCardType(instrument))
	case KindBank:
		if !ValidateBankAccountNumber(instrument) {
			return nil, fmt.Errorf("%w: bank account number must be at least 8 digits", ErrInvalidInstrument)
		}
		digits := digitsOnly(instrument)
		lastFour = digits[len(digits)-4:]
	case KindCryptoWallet:
		chain := Chain(metadata["chain"])
		if chain == "" {
			chain = ChainEthereum
			metadata["chain"] = string(ChainEthereum)
		}
		if !ValidateCryptoAddress(instrument, chain) {
			return nil, fmt.Errorf("%w: address is not valid for chain %s", ErrInvalidInstrument, chain)
		}
		lastFour = instrument[len(instrument)-4:]
	default:
		return nil, fmt.Errorf("unknown payment method kind: %q", kind)
	}

	if label == "" {
		label = fmt.Sprintf("%s ending %s", kind, lastFour)
	}

	now := time.Now().UTC()
	return &MethodDescriptor{
		ID:        id,
		TenantID:  tenantID,
		UserID:    userID,
		Kind:      kind,
		Label:     label,
		LastFour:  lastFour,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
