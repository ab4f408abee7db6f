package cashley

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/abdegenius/cashley-bot/internal/domain"
)

// BillService is a provider available for a bill type (an airtime network, an
// electricity disco, a TV operator).
type BillService struct {
	ServiceID     string `json:"service_id"`
	Name          string `json:"name"`
	MinimumAmount string `json:"minimum_amount"`
	MaximumAmount string `json:"maximum_amount"`
	Image         string `json:"image"`
}

// Variation is a provider-defined purchasable plan, e.g. a specific data
// bundle or TV package.
type Variation struct {
	VariationCode   string `json:"variation_code"`
	Name            string `json:"name"`
	VariationAmount string `json:"variation_amount"`
}

// PurchaseRequest is the body for an immediate (non-scheduled) bill purchase.
// Phone is overloaded the same way as in schedules: phone, meter or smart card
// number depending on the action.
type PurchaseRequest struct {
	ServiceID     string `json:"service_id"`
	Phone         string `json:"phone"`
	Amount        string `json:"amount,omitempty"`
	VariationCode string `json:"variation_code,omitempty"`
}

// BillServices returns the providers for a bill type.
func (c *Client) BillServices(action domain.ActionKind) ([]BillService, error) {
	path := "/bill/service?service=" + url.QueryEscape(string(action))

	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var services []BillService
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("unmarshal bill services: %w", err)
	}

	return services, nil
}

// ServiceVariations returns the plans offered by a provider.
func (c *Client) ServiceVariations(serviceID string) ([]Variation, error) {
	path := "/bill/service-variations?service_id=" + url.QueryEscape(serviceID)

	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var variations []Variation
	if err := json.Unmarshal(data, &variations); err != nil {
		return nil, fmt.Errorf("unmarshal variations: %w", err)
	}

	return variations, nil
}

// Purchase executes an immediate bill payment and returns the resulting
// wallet transaction.
func (c *Client) Purchase(action domain.ActionKind, req PurchaseRequest) (*Transaction, error) {
	data, err := c.doRequest(http.MethodPost, "/bill/"+url.PathEscape(string(action)), req)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	return &tx, nil
}
