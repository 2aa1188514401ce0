package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction_tracker/config"
)

func TestClients_TimeoutsFollowConfig(t *testing.T) {
	cfg := config.Default()
	clients := NewClients(cfg)

	assert.Equal(t, 15*time.Second, clients.Search(cfg).Timeout)
	assert.Equal(t, 10*time.Second, clients.Detail(cfg).Timeout)

	edited := config.Default()
	edited.Catalog.SearchTimeout = 30 * time.Second
	edited.Scan.DetailTimeout = 4 * time.Second
	assert.Equal(t, 30*time.Second, clients.Search(edited).Timeout)
	assert.Equal(t, 4*time.Second, clients.Detail(edited).Timeout)

	assert.Same(t, clients.Search(cfg).Transport, clients.Detail(edited).Transport, "connections are pooled across calls")
}

func TestNewClients_Proxy(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.URL = "http://proxy.example:8080"
	clients := NewClients(cfg)

	req, err := http.NewRequest(http.MethodGet, "https://www.govdeals.com/api/assets/search", nil)
	require.NoError(t, err)
	transport := clients.Search(cfg).Transport.(*http.Transport)
	proxy, err := transport.Proxy(req)
	require.NoError(t, err)
	require.NotNil(t, proxy)
	assert.Equal(t, "proxy.example:8080", proxy.Host)
}

func TestSetBrowserHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://www.govdeals.com", nil)
	require.NoError(t, err)
	SetBrowserHeaders(req)
	assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))
	assert.NotEmpty(t, req.Header.Get("Accept-Language"))
}
