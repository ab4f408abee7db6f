package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
)

// WalletGateway is the wallet surface of the API.
type WalletGateway interface {
	Wallet() (*cashley.Wallet, error)
	Transactions(limit int) ([]cashley.Transaction, error)
	Transfer(req cashley.TransferRequest) (*cashley.Transaction, error)
}

// WalletService is a thin pass-through over the wallet API. Balance
// arithmetic and settlement stay server-side; the client only checks inputs
// and formats output.
type WalletService struct {
	gateway WalletGateway
}

func NewWalletService(gateway WalletGateway) *WalletService {
	return &WalletService{gateway: gateway}
}

func (s *WalletService) Balance() (*cashley.Wallet, error) {
	wallet, err := s.gateway.Wallet()
	if err != nil {
		return nil, normalize(err, "failed to fetch wallet")
	}
	return wallet, nil
}

func (s *WalletService) RecentTransactions(limit int) ([]cashley.Transaction, error) {
	txs, err := s.gateway.Transactions(limit)
	if err != nil {
		return nil, normalize(err, "failed to fetch transactions")
	}
	return txs, nil
}

// Send transfers money to another wallet by tag.
func (s *WalletService) Send(tag, amount, narration string) (*cashley.Transaction, error) {
	tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "@"))
	if tag == "" {
		return nil, fmt.Errorf("recipient tag is required")
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("amount must be a number")
	}
	if dec.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	tx, err := s.gateway.Transfer(cashley.TransferRequest{
		Tag:       tag,
		Amount:    dec.String(),
		Narration: strings.TrimSpace(narration),
	})
	if err != nil {
		return nil, normalize(err, "failed to send money")
	}
	return tx, nil
}

// FormatAmount renders a string decimal with thousands separators, falling
// back to the raw value if it does not parse.
func FormatAmount(amount, currency string) string {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	whole := dec.Truncate(0)
	frac := dec.Sub(whole).Abs()

	digits := whole.Abs().String()
	var sb strings.Builder
	if dec.IsNegative() {
		sb.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if !frac.IsZero() {
		sb.WriteString(strings.TrimPrefix(frac.StringFixed(2), "0"))
	}
	if currency != "" {
		return currency + sb.String()
	}
	return sb.String()
}
