package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
)

type fakeWalletGateway struct {
	walletFn       func() (*cashley.Wallet, error)
	transactionsFn func(limit int) ([]cashley.Transaction, error)
	transferFn     func(req cashley.TransferRequest) (*cashley.Transaction, error)
}

func (f *fakeWalletGateway) Wallet() (*cashley.Wallet, error) { return f.walletFn() }
func (f *fakeWalletGateway) Transactions(limit int) ([]cashley.Transaction, error) {
	return f.transactionsFn(limit)
}
func (f *fakeWalletGateway) Transfer(req cashley.TransferRequest) (*cashley.Transaction, error) {
	return f.transferFn(req)
}

func TestSend_NormalizesTagAndAmount(t *testing.T) {
	var got cashley.TransferRequest
	svc := NewWalletService(&fakeWalletGateway{
		transferFn: func(req cashley.TransferRequest) (*cashley.Transaction, error) {
			got = req
			return &cashley.Transaction{Reference: "tx-1", Status: "success"}, nil
		},
	})

	tx, err := svc.Send(" @ayo ", "1500.50", " groceries ")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.Reference)
	assert.Equal(t, "ayo", got.Tag)
	assert.Equal(t, "1500.5", got.Amount)
	assert.Equal(t, "groceries", got.Narration)
}

func TestSend_RejectsBadInput(t *testing.T) {
	svc := NewWalletService(&fakeWalletGateway{
		transferFn: func(req cashley.TransferRequest) (*cashley.Transaction, error) {
			t.Fatal("transfer must not be called")
			return nil, nil
		},
	})

	tests := []struct {
		name   string
		tag    string
		amount string
	}{
		{"empty tag", "", "100"},
		{"only at sign", "@", "100"},
		{"bad amount", "ayo", "lots"},
		{"zero amount", "ayo", "0"},
		{"negative amount", "ayo", "-50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(tt.tag, tt.amount, "")
			assert.Error(t, err)
		})
	}
}

func TestSend_KeepsBusinessErrorVerbatim(t *testing.T) {
	svc := NewWalletService(&fakeWalletGateway{
		transferFn: func(req cashley.TransferRequest) (*cashley.Transaction, error) {
			return nil, &cashley.APIError{Message: "Insufficient balance"}
		},
	})

	_, err := svc.Send("ayo", "100", "")
	assert.EqualError(t, err, "Insufficient balance")
}

func TestBalance_WrapsTransportError(t *testing.T) {
	transport := errors.New("connection refused")
	svc := NewWalletService(&fakeWalletGateway{
		walletFn: func() (*cashley.Wallet, error) { return nil, transport },
	})

	_, err := svc.Balance()
	require.Error(t, err)
	assert.ErrorIs(t, err, transport)
	assert.Contains(t, err.Error(), "failed to fetch wallet")
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1500", "₦", "₦1,500"},
		{"1234567.89", "₦", "₦1,234,567.89"},
		{"999", "", "999"},
		{"1000000", "", "1,000,000"},
		{"-2500.5", "₦", "₦-2,500.50"},
		{"0", "₦", "₦0"},
		{"garbage", "₦", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.currency), "amount %q", tt.amount)
	}
}
