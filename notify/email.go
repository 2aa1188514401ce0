package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"auction_tracker/config"
	"auction_tracker/models"
)

// EmailNotifier sends plain-text summaries over SMTP. UseTLS selects STARTTLS
// on a plain connection; otherwise the connection is TLS from the start.
type EmailNotifier struct {
	cfg  config.EmailConfig
	send func(addr string, msg []byte) error
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg}
	n.send = n.dial
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) NewListings(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Auction Tracker: %d new listing(s)", len(listings))
	if err := n.deliver(subject, ListingsBody(listings)); err != nil {
		return err
	}
	log.Printf("[EMAIL] Sent notification for %d new listing(s)", len(listings))
	return nil
}

func (n *EmailNotifier) Alert(ctx context.Context, message string, intervention bool) error {
	return n.deliver(AlertTitle(intervention), message)
}

// ListingsBody renders one entry per listing: title, price, location and URL.
func ListingsBody(listings []models.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New listings found (%d):\n\n", len(listings))
	for _, l := range listings {
		fmt.Fprintf(&b, "- %s ($%.2f, %s)\n  %s\n", l.Title, l.Price, l.Location, l.URL)
	}
	return b.String()
}

func (n *EmailNotifier) deliver(subject, body string) error {
	msg := buildMessage(n.cfg.FromAddr, n.cfg.ToAddr, subject, body)
	addr := net.JoinHostPort(n.cfg.SMTPHost, strconv.Itoa(n.cfg.SMTPPort))
	if err := n.send(addr, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func (n *EmailNotifier) dial(addr string, msg []byte) error {
	tlsCfg := &tls.Config{ServerName: n.cfg.SMTPHost}

	var c *smtp.Client
	if n.cfg.UseTLS {
		var err error
		c, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			c.Close()
			return fmt.Errorf("starttls: %w", err)
		}
	} else {
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, n.cfg.SMTPHost)
		if err != nil {
			conn.Close()
			return err
		}
	}
	defer c.Close()

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(n.cfg.FromAddr); err != nil {
		return err
	}
	if err := c.Rcpt(n.cfg.ToAddr); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
