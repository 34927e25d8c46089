package bitquery

// Client for the Bitquery GraphQL API.
// Two queries: the most recent transfers of a token, and the current balance
// of one address in that token. Requests carry the X-API-KEY header.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"token-holders/internal/infra/httpclient"
)

const DefaultEndpoint = "https://graphql.bitquery.io"

// ErrGraphQL marks a 200 response whose "errors" array was not empty.
var ErrGraphQL = errors.New("graphql error")

type Transfer struct {
	Sender    string
	Receiver  string
	Timestamp string
}

type Client struct {
	endpoint string
	network  string
	http     *httpclient.Client
}

func NewClient(endpoint, apiKey, network string, opts httpclient.Options) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if network == "" {
		network = "ethereum"
	}
	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	headers["X-API-KEY"] = apiKey
	opts.Headers = headers

	return &Client{
		endpoint: endpoint,
		network:  network,
		http:     httpclient.New(opts),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := c.http.PostJSON(ctx, c.endpoint, graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: empty data", ErrGraphQL)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal graphql data: %w", err)
	}
	return nil
}

type transfersData struct {
	Ethereum struct {
		Transfers []struct {
			Sender struct {
				Address string `json:"address"`
			} `json:"sender"`
			Receiver struct {
				Address string `json:"address"`
			} `json:"receiver"`
			Block struct {
				Timestamp struct {
					Time string `json:"time"`
				} `json:"timestamp"`
			} `json:"block"`
		} `json:"transfers"`
	} `json:"ethereum"`
}

// RecentTransfers returns up to limit transfers of token, newest first.
func (c *Client) RecentTransfers(ctx context.Context, token string, limit int) ([]Transfer, error) {
	var data transfersData
	err := c.query(ctx, recentTransfersQuery, map[string]interface{}{
		"network": c.network,
		"token":   token,
		"limit":   limit,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transfers: %w", err)
	}

	transfers := make([]Transfer, 0, len(data.Ethereum.Transfers))
	for _, t := range data.Ethereum.Transfers {
		transfers = append(transfers, Transfer{
			Sender:    t.Sender.Address,
			Receiver:  t.Receiver.Address,
			Timestamp: t.Block.Timestamp.Time,
		})
	}
	return transfers, nil
}

type balanceData struct {
	Ethereum struct {
		Address []struct {
			Balances []struct {
				Value json.RawMessage `json:"value"`
			} `json:"balances"`
		} `json:"address"`
	} `json:"ethereum"`
}

// Balance returns the current balance of address in token as the API reports it.
// An empty string means the API returned no balance entry.
func (c *Client) Balance(ctx context.Context, token, address string) (string, error) {
	var data balanceData
	err := c.query(ctx, balanceQuery, map[string]interface{}{
		"network": c.network,
		"address": address,
		"token":   token,
	}, &data)
	if err != nil {
		return "", fmt.Errorf("failed to query balance of %s: %w", address, err)
	}

	for _, a := range data.Ethereum.Address {
		for _, b := range a.Balances {
			v := strings.Trim(strings.TrimSpace(string(b.Value)), `"`)
			if v != "" && v != "null" {
				return v, nil
			}
		}
	}
	return "", nil
}
