package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/version"
)

func TestHTTPClient_GetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices", r.URL.Path)
		assert.Equal(t, version.AgentString(), r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"LUNC/USD","price":"0.00008512"},{"symbol":"USTC/USD","price":"0.0123"}]`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/", time.Second)
	prices, err := client.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "LUNC/USD", prices[0].Symbol)
	assert.Equal(t, "0.00008512", prices[0].Price.String())
}

func TestHTTPClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "No prices available", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).GetPrices(context.Background())
	assert.ErrorIs(t, err, ErrPriceServerHTTPError)
	assert.Contains(t, err.Error(), "No prices available")
}

func TestHTTPClient_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).GetPrices(context.Background())
	assert.Error(t, err)
}
