package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"auction_tracker/config"
	"auction_tracker/models"
)

// Notifier delivers cycle outcomes to one channel.
type Notifier interface {
	Name() string
	NewListings(ctx context.Context, listings []models.Listing) error
	// Alert reports a failed cycle or scan. intervention marks failures a
	// person has to clear, such as a captcha or login wall.
	Alert(ctx context.Context, message string, intervention bool) error
}

// Dispatcher fans out to every configured notifier. Delivery failures are
// logged and never returned.
type Dispatcher struct {
	notifiers []Notifier
}

func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.notifiers)
}

// NewListings is a no-op for an empty slice.
func (d *Dispatcher) NewListings(ctx context.Context, listings []models.Listing) {
	if d == nil || len(listings) == 0 {
		return
	}
	for _, n := range d.notifiers {
		if err := n.NewListings(ctx, listings); err != nil {
			log.Printf("[NOTIFY] %s: %v", n.Name(), err)
		}
	}
}

func (d *Dispatcher) Alert(ctx context.Context, message string, intervention bool) {
	if d == nil {
		return
	}
	for _, n := range d.notifiers {
		if err := n.Alert(ctx, message, intervention); err != nil {
			log.Printf("[NOTIFY] %s alert: %v", n.Name(), err)
		}
	}
}

const (
	previewCount    = 3
	previewTitleLen = 40
)

// Summary is the one-line push text: "N new listing(s): t1, t2, t3".
func Summary(listings []models.Listing) string {
	n := len(listings)
	if n > previewCount {
		n = previewCount
	}
	titles := make([]string, 0, n)
	for _, l := range listings[:n] {
		titles = append(titles, truncate(l.Title, previewTitleLen))
	}
	return fmt.Sprintf("%d new listing(s): %s", len(listings), strings.Join(titles, ", "))
}

// AlertTitle distinguishes alerts that need a person from ordinary failures.
func AlertTitle(intervention bool) string {
	if intervention {
		return "Auction Tracker: manual intervention required"
	}
	return "Auction Tracker: run failed"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Options are per-run overrides from the command line.
type Options struct {
	NoEmail bool
	NoPush  bool
}

// FromConfig builds a dispatcher for the channels enabled in cfg and not
// suppressed by opts.
func FromConfig(cfg *config.Config, client *http.Client, opts Options) *Dispatcher {
	var notifiers []Notifier
	if cfg.Email.Enabled && !opts.NoEmail {
		notifiers = append(notifiers, NewEmailNotifier(cfg.Email))
	}
	if cfg.Push.Enabled && !opts.NoPush {
		notifiers = append(notifiers, NewPushNotifier(cfg.Push, client))
	}
	return NewDispatcher(notifiers...)
}
