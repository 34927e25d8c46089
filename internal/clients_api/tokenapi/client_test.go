package tokenapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"token-holders/internal/infra/httpclient"
	"token-holders/internal/infra/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "0x1111111111111111111111111111111111111111"

func newTestClient(url string) *Client {
	opts := httpclient.DefaultOptions("tokenapi-test")
	opts.RateLimit = 0
	return NewClient(url+"/", opts)
}

func TestFetchPage_BuildsRequestAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/"+token, r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("pageNumber"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"body":[{"from":"0xa","to":"0xb","value":"1000"}]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).FetchPage(context.Background(), token, 3, 50)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, Transfer{From: "0xa", To: "0xb", Value: "1000"}, page[0])
}

func TestFetchPage_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"body":[]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).FetchPage(context.Background(), token, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestFetchPage_PropagatesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), token, 1, 50)

	var he *retry.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestFetchPage_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), token, 1, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
