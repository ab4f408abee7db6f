package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
)

// BillingGateway is the billing-catalog surface of the wallet API.
type BillingGateway interface {
	BillServices(action domain.ActionKind) ([]cashley.BillService, error)
	ServiceVariations(serviceID string) ([]cashley.Variation, error)
	Purchase(action domain.ActionKind, req cashley.PurchaseRequest) (*cashley.Transaction, error)
}

// BillingService caches the provider/variation catalog per user session and
// runs immediate purchases. The catalog changes rarely, so entries live for
// the session.
type BillingService struct {
	gateway BillingGateway

	mu         sync.Mutex
	providers  map[domain.ActionKind][]cashley.BillService
	variations map[string][]cashley.Variation
}

func NewBillingService(gateway BillingGateway) *BillingService {
	return &BillingService{
		gateway:    gateway,
		providers:  make(map[domain.ActionKind][]cashley.BillService),
		variations: make(map[string][]cashley.Variation),
	}
}

// Providers returns the providers for a bill type, fetching once per session.
func (s *BillingService) Providers(action domain.ActionKind) ([]cashley.BillService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.providers[action]; ok {
		return cached, nil
	}

	services, err := s.gateway.BillServices(action)
	if err != nil {
		return nil, normalize(err, "failed to fetch providers")
	}

	s.providers[action] = services
	return services, nil
}

// Variations returns the plans offered by a provider, fetching once per
// session.
func (s *BillingService) Variations(serviceID string) ([]cashley.Variation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.variations[serviceID]; ok {
		return cached, nil
	}

	variations, err := s.gateway.ServiceVariations(serviceID)
	if err != nil {
		return nil, normalize(err, "failed to fetch plans")
	}

	s.variations[serviceID] = variations
	return variations, nil
}

// FindVariation resolves a variation code against the provider's catalog.
func (s *BillingService) FindVariation(serviceID, code string) (*cashley.Variation, error) {
	variations, err := s.Variations(serviceID)
	if err != nil {
		return nil, err
	}
	for i := range variations {
		if variations[i].VariationCode == code {
			return &variations[i], nil
		}
	}
	return nil, fmt.Errorf("unknown plan %q", code)
}

// Purchase runs an immediate bill payment after the same recipient/amount
// checks the schedule draft applies.
func (s *BillingService) Purchase(action domain.ActionKind, serviceID, recipient, amount, variation string) (*cashley.Transaction, error) {
	recipient = strings.Join(strings.Fields(recipient), "")
	if len(recipient) < 6 || !isDigits(recipient) {
		return nil, fmt.Errorf("%s looks invalid", strings.ToLower(action.RecipientLabel()))
	}

	req := cashley.PurchaseRequest{
		ServiceID: serviceID,
		Phone:     recipient,
	}
	if action.FreeAmount() {
		dec, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil || dec.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("amount must be a positive number")
		}
		req.Amount = dec.String()
	} else {
		if variation == "" {
			return nil, fmt.Errorf("please select a plan")
		}
		req.VariationCode = variation
	}

	tx, err := s.gateway.Purchase(action, req)
	if err != nil {
		return nil, normalize(err, "failed to complete purchase")
	}
	return tx, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
