package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMethodDescriptorCard(t *testing.T) {
	m, err := NewMethodDescriptor("m-1", "tenant-1", "user-1", KindCard, "", "4111 1111 1111 1111", nil)
	require.NoError(t, err)

	assert.Equal(t, "1111", m.LastFour)
	assert.Equal(t, "card ending 1111", m.Label)
	assert.Equal(t, string(CardVisa), m.Metadata["card_type"])
	assert.False(t, m.IsDefault)
}

func TestNewMethodDescriptorBank(t *testing.T) {
	m, err := NewMethodDescriptor("m-2", "tenant-1", "user-1", KindBank, "Salary account", "0123456789", nil)
	require.NoError(t, err)

	assert.Equal(t, "6789", m.LastFour)
	assert.Equal(t, "Salary account", m.Label)
}

func TestNewMethodDescriptorCryptoWallet(t *testing.T) {
	addr := "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"

	m, err := NewMethodDescriptor("m-3", "tenant-1", "user-1", KindCryptoWallet, "", addr, nil)
	require.NoError(t, err)

	assert.Equal(t, "7bae", m.LastFour)
	assert.Equal(t, string(ChainEthereum), m.Metadata["chain"], "chain defaults to ethereum")
}

func TestNewMethodDescriptorRejectsBadInstruments(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		instrument string
		metadata   map[string]string
	}{
		{"card bad checksum", KindCard, "4111111111111112", nil},
		{"bank too short", KindBank, "1234567", nil},
		{"crypto bad address", KindCryptoWallet, "0xnothex", nil},
		{"crypto unsupported chain", KindCryptoWallet, "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae", map[string]string{"chain": "dogecoin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMethodDescriptor("m-x", "tenant-1", "user-1", tt.kind, "", tt.instrument, tt.metadata)
			assert.ErrorIs(t, err, ErrInvalidInstrument)
		})
	}
}

func TestNewMethodDescriptorUnknownKind(t *testing.T) {
	_, err := NewMethodDescriptor("m-x", "tenant-1", "user-1", Kind("cheque"), "", "anything", nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInstrument)
}

func TestNewMethodDescriptorRequiresIdentity(t *testing.T) {
	_, err := NewMethodDescriptor("", "tenant-1", "user-1", KindCard, "", "4111111111111111", nil)
	assert.Error(t, err)

	_, err = NewMethodDescriptor("m-1", "", "user-1", KindCard, "", "4111111111111111", nil)
	assert.Error(t, err)

	_, err = NewMethodDescriptor("m-1", "tenant-1", "", KindCard, "", "4111111111111111", nil)
	assert.Error(t, err)
}
