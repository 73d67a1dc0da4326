// Package smtpnotify implements the SMTP external collaborator:
// thermal-transition email notifications (spec.md §4.7/§6). Grounded
// on the teacher's engine/alert.go Notifier (Enabled()/rate-limited
// async send idiom), with the send path swapped from
// exec.Command("mail", ...) to real net/smtp.SendMail, since spec.md
// §6 names concrete SENTINEL_SMTP_* credentials rather than assuming a
// local mail binary.
package smtpnotify

import (
	"fmt"
	"log"
	"net/smtp"
	"sync"
	"time"
)

// RateLimitInterval bounds how often a second notification of the same
// kind may be sent (spec.md §7: "next alert of same event kind will
// retry after the notifier's rate-limit interval").
const RateLimitInterval = 5 * time.Minute

// Config holds the SMTP connection parameters and credentials. Host and
// Port address the submission server; User/Password authenticate;
// Recipient is the single alert destination (spec.md §6 credential
// file).
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Recipient string
}

// Enabled reports whether all three .env credentials (and therefore the
// notifier) are present (spec.md §6).
func (c Config) Enabled() bool {
	return c.User != "" && c.Password != "" && c.Recipient != ""
}

// Notifier sends thermal-transition emails, rate-limited per event
// kind. It is safe for concurrent use: the coordinator calls Notify
// synchronously but the send itself runs on its own goroutine (spec.md
// §5 "the SMTP notifier performs its own rate-limit check synchronously
// before spawning its send").
type Notifier struct {
	cfg Config

	mu   sync.Mutex
	last map[string]time.Time

	// sendMail is overridable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a Notifier from cfg. A zero Config yields a disabled
// notifier whose Notify calls are no-ops.
func New(cfg Config) *Notifier {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &Notifier{cfg: cfg, last: make(map[string]time.Time), sendMail: smtp.SendMail}
}

// Notify sends kind/detail as an email if the notifier is enabled and
// the rate-limit window for this kind has elapsed. It logs and swallows
// send failures per spec.md §7 ("log; next alert of same event kind
// will retry").
func (n *Notifier) Notify(kind string, detail string) {
	if !n.cfg.Enabled() {
		return
	}

	n.mu.Lock()
	now := time.Now()
	if prev, ok := n.last[kind]; ok && now.Sub(prev) < RateLimitInterval {
		n.mu.Unlock()
		return
	}
	n.last[kind] = now
	n.mu.Unlock()

	go n.send(kind, detail)
}

func (n *Notifier) send(kind, detail string) {
	addr := n.cfg.Host + ":" + n.cfg.Port
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	subject := fmt.Sprintf("Sentinel thermal alert: %s", kind)
	msg := fmt.Appendf(nil, "To: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.cfg.Recipient, subject, detail)

	if err := n.sendMail(addr, auth, n.cfg.User, []string{n.cfg.Recipient}, msg); err != nil {
		log.Printf("sentinel: smtp send failed for %s: %v", kind, err)
	}
}
