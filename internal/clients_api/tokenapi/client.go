package tokenapi

// Client for the REST token-transactions endpoint:
//   GET {base}/token/{tokenAddress}?pageNumber=N&limit=M  ->  {"body":[{from,to,value}, ...]}
// The client does not retry; callers decide what a failure means.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"token-holders/internal/infra/httpclient"
)

// Transfer is one debit/credit tuple as returned by the API.
// Value is the raw integer amount in the token's smallest unit.
type Transfer struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp,omitempty"`
}

type pageResponse struct {
	Body []Transfer `json:"body"`
}

type Client struct {
	baseURL string
	http    *httpclient.Client
}

func NewClient(baseURL string, opts httpclient.Options) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(opts),
	}
}

// FetchPage returns one page of transfers for tokenAddress. Pages start at 1.
func (c *Client) FetchPage(ctx context.Context, tokenAddress string, pageNumber, pageSize int) ([]Transfer, error) {
	params := url.Values{}
	params.Set("pageNumber", strconv.Itoa(pageNumber))
	params.Set("limit", strconv.Itoa(pageSize))

	endpoint := fmt.Sprintf("%s/token/%s?%s", c.baseURL, url.PathEscape(tokenAddress), params.Encode())

	body, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get token page %d: %w", pageNumber, err)
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token page %d: %w", pageNumber, err)
	}
	return resp.Body, nil
}
