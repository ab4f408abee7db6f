package cashley

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Wallet is the user's balance snapshot.
type Wallet struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Tag      string `json:"tag"`
}

// Transaction is a wallet ledger entry. Amounts stay as string decimals; the
// server owns all arithmetic.
type Transaction struct {
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Narration string    `json:"narration"`
	CreatedAt time.Time `json:"created_at"`
}

// TransferRequest is the body for a wallet-to-wallet transfer.
type TransferRequest struct {
	Tag       string `json:"tag"`
	Amount    string `json:"amount"`
	Narration string `json:"narration,omitempty"`
}

// Wallet returns the user's wallet.
func (c *Client) Wallet() (*Wallet, error) {
	data, err := c.doRequest(http.MethodGet, "/wallet", nil)
	if err != nil {
		return nil, err
	}

	var wallet Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("unmarshal wallet: %w", err)
	}

	return &wallet, nil
}

type transactionsPayload struct {
	Data []Transaction `json:"data"`
}

// Transactions returns recent wallet transactions, newest first.
func (c *Client) Transactions(limit int) ([]Transaction, error) {
	path := "/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payload transactionsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}

	return payload.Data, nil
}

// Transfer sends money to another wallet by tag.
func (c *Client) Transfer(req TransferRequest) (*Transaction, error) {
	data, err := c.doRequest(http.MethodPost, "/transfer", req)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	return &tx, nil
}
