// Package tokeninfo looks up token symbol, name and price from a DIA style
// asset quotation API.
package tokeninfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medusa/internal/entity"
)

type Client struct {
	baseURL string
	chain   string
	http    *http.Client
}

func New(baseURL, chain string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chain:   chain,
		http:    &http.Client{Timeout: timeout},
	}
}

type quotation struct {
	Symbol string  `json:"Symbol"`
	Name   string  `json:"Name"`
	Price  float64 `json:"Price"`
}

// Lookup fetches metadata for address. Every failure, including an answer
// without symbol or price, is reported as entity.ErrLookupFailure.
func (c *Client) Lookup(ctx context.Context, address string) (entity.Token, error) {
	endpoint := fmt.Sprintf("%s/v1/assetQuotation/%s/%s", c.baseURL, url.PathEscape(c.chain), url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.Token{}, fmt.Errorf("%w: %v", entity.ErrLookupFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return entity.Token{}, fmt.Errorf("%w: %v", entity.ErrLookupFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.Token{}, fmt.Errorf("%w: status %d", entity.ErrLookupFailure, resp.StatusCode)
	}

	var q quotation
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return entity.Token{}, fmt.Errorf("%w: decode: %v", entity.ErrLookupFailure, err)
	}
	if q.Symbol == "" || q.Price <= 0 {
		return entity.Token{}, fmt.Errorf("%w: incomplete quotation", entity.ErrLookupFailure)
	}

	return entity.Token{
		Address: address,
		Symbol:  q.Symbol,
		Name:    q.Name,
		Price:   strconv.FormatFloat(q.Price, 'f', -1, 64),
		Known:   true,
	}, nil
}
