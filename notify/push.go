package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"auction_tracker/config"
	"auction_tracker/models"
)

const PushoverURL = "https://api.pushover.net/1/messages.json"

// PushNotifier posts a one-line summary to Pushover or ntfy.
type PushNotifier struct {
	cfg         config.PushConfig
	client      *http.Client
	pushoverURL string
}

func NewPushNotifier(cfg config.PushConfig, client *http.Client) *PushNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &PushNotifier{cfg: cfg, client: client, pushoverURL: PushoverURL}
}

func (p *PushNotifier) Name() string { return "push/" + p.method() }

func (p *PushNotifier) method() string {
	if p.cfg.Method == "" {
		return "pushover"
	}
	return strings.ToLower(p.cfg.Method)
}

func (p *PushNotifier) NewListings(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return p.send(ctx, "Auction Tracker Alert", Summary(listings))
}

func (p *PushNotifier) Alert(ctx context.Context, message string, intervention bool) error {
	return p.send(ctx, AlertTitle(intervention), message)
}

func (p *PushNotifier) send(ctx context.Context, title, message string) error {
	var req *http.Request
	var err error

	switch p.method() {
	case "pushover":
		form := url.Values{
			"token":   {p.cfg.Pushover.APIToken},
			"user":    {p.cfg.Pushover.UserKey},
			"title":   {title},
			"message": {message},
		}
		req, err = http.NewRequestWithContext(ctx, "POST", p.pushoverURL, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case "ntfy":
		if p.cfg.Ntfy.URL == "" {
			return fmt.Errorf("ntfy url not configured")
		}
		req, err = http.NewRequestWithContext(ctx, "POST", p.cfg.Ntfy.URL, strings.NewReader(message))
		if err != nil {
			return err
		}
		req.Header.Set("Title", title)
	default:
		return fmt.Errorf("unknown push method: %s", p.cfg.Method)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	log.Printf("[PUSH] %s notification sent", p.method())
	return nil
}
