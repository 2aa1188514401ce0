package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction_tracker/config"
	"auction_tracker/models"
)

func TestSummary(t *testing.T) {
	listings := []models.Listing{
		{Title: "Lenovo ThinkPad T480 14in Core i5 8th Gen 16GB RAM 256GB SSD"},
		{Title: "ThinkPad X1 Carbon"},
		{Title: "ThinkPad T14"},
		{Title: "ThinkPad X260"},
	}
	assert.Equal(t,
		"4 new listing(s): Lenovo ThinkPad T480 14in Core i5 8th Ge, ThinkPad X1 Carbon, ThinkPad T14",
		Summary(listings))
	assert.Equal(t, "1 new listing(s): ThinkPad T14", Summary(listings[2:3]))
}

func TestListingsBody(t *testing.T) {
	body := ListingsBody([]models.Listing{
		{Title: "ThinkPad T480", Price: 150.5, Location: "Austin, TX", URL: "https://example.test/1"},
	})
	assert.Equal(t, "New listings found (1):\n\n- ThinkPad T480 ($150.50, Austin, TX)\n  https://example.test/1\n", body)
}

type stubNotifier struct {
	name   string
	err    error
	alerts int
	sent   int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) NewListings(ctx context.Context, listings []models.Listing) error {
	s.sent++
	return s.err
}

func (s *stubNotifier) Alert(ctx context.Context, message string, intervention bool) error {
	s.alerts++
	return s.err
}

func TestDispatcher_ContinuesPastFailures(t *testing.T) {
	broken := &stubNotifier{name: "broken", err: errors.New("smtp down")}
	ok := &stubNotifier{name: "ok"}
	d := NewDispatcher(broken, nil, ok)
	assert.Equal(t, 2, d.Len())

	ctx := context.Background()
	d.NewListings(ctx, []models.Listing{{ID: "a"}})
	d.NewListings(ctx, nil)
	d.Alert(ctx, "cycle failed", false)

	assert.Equal(t, 1, broken.sent)
	assert.Equal(t, 1, ok.sent, "empty batches are not sent")
	assert.Equal(t, 1, ok.alerts)

	var nilDispatcher *Dispatcher
	nilDispatcher.Alert(ctx, "ignored", true)
	assert.Zero(t, nilDispatcher.Len())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Email.Enabled = true
	cfg.Push.Enabled = true

	assert.Equal(t, 2, FromConfig(cfg, nil, Options{}).Len())
	assert.Equal(t, 1, FromConfig(cfg, nil, Options{NoEmail: true}).Len())
	assert.Zero(t, FromConfig(cfg, nil, Options{NoEmail: true, NoPush: true}).Len())
}

func TestPushNotifier_Pushover(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"title":   r.PostForm.Get("title"),
			"message": r.PostForm.Get("message"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := NewPushNotifier(config.PushConfig{
		Method:   "pushover",
		Pushover: config.PushoverConfig{APIToken: "tok", UserKey: "usr"},
	}, srv.Client())
	p.pushoverURL = srv.URL

	err := p.NewListings(context.Background(), []models.Listing{{Title: "ThinkPad T480"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"token":   "tok",
		"user":    "usr",
		"title":   "Auction Tracker Alert",
		"message": "1 new listing(s): ThinkPad T480",
	}, form)
}

func TestPushNotifier_Ntfy(t *testing.T) {
	var title, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer srv.Close()

	p := NewPushNotifier(config.PushConfig{Method: "NTFY", Ntfy: config.NtfyConfig{URL: srv.URL + "/tracker"}}, srv.Client())
	require.NoError(t, p.Alert(context.Background(), "captcha at search page", true))
	assert.Equal(t, AlertTitle(true), title)
	assert.Equal(t, "captcha at search page", body)
	assert.Equal(t, "push/ntfy", p.Name())
}

func TestPushNotifier_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPushNotifier(config.PushConfig{Method: "pushover"}, srv.Client())
	p.pushoverURL = srv.URL
	err := p.Alert(context.Background(), "x", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	err = NewPushNotifier(config.PushConfig{Method: "ntfy"}, nil).Alert(context.Background(), "x", false)
	assert.ErrorContains(t, err, "ntfy url")

	err = NewPushNotifier(config.PushConfig{Method: "pager"}, nil).Alert(context.Background(), "x", false)
	assert.ErrorContains(t, err, "unknown push method")
}

func TestEmailNotifier_Message(t *testing.T) {
	n := NewEmailNotifier(config.EmailConfig{
		SMTPHost: "smtp.example.test",
		SMTPPort: 587,
		FromAddr: "tracker@example.test",
		ToAddr:   "me@example.test",
	})
	var gotAddr string
	var gotMsg string
	n.send = func(addr string, msg []byte) error {
		gotAddr = addr
		gotMsg = string(msg)
		return nil
	}

	require.NoError(t, n.NewListings(context.Background(), []models.Listing{{Title: "ThinkPad T480", Price: 99, URL: "https://example.test/1"}}))
	assert.Equal(t, "smtp.example.test:587", gotAddr)
	assert.Contains(t, gotMsg, "Subject: Auction Tracker: 1 new listing(s)\r\n")
	assert.Contains(t, gotMsg, "To: me@example.test\r\n")
	assert.Contains(t, gotMsg, "- ThinkPad T480 ($99.00, )\r\n  https://example.test/1\r\n")
	assert.False(t, strings.Contains(strings.ReplaceAll(gotMsg, "\r\n", ""), "\n"), "bare line feeds are converted")

	gotMsg = ""
	require.NoError(t, n.NewListings(context.Background(), nil))
	assert.Empty(t, gotMsg)

	n.send = func(string, []byte) error { return errors.New("connection refused") }
	err := n.Alert(context.Background(), "boom", false)
	assert.ErrorContains(t, err, "smtp.example.test:587")
}
