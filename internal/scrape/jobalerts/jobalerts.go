// Package jobalerts ingests listings from job-alert digest emails over
// IMAP. Scrape pulls unseen matching messages and returns their HTML
// bodies; Parse extracts the advertised jobs from the digest markup.
package jobalerts

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
)

const maxMessages = 200

type Adapter struct {
	cfg     config.JobAlertsSource
	filters config.Filters

	// Password is resolved lazily so the keychain is only touched when
	// the adapter actually runs.
	Password func() (string, error)
}

func New(cfg config.JobAlertsSource, filters config.Filters, password func() (string, error)) *Adapter {
	return &Adapter{cfg: cfg, filters: filters, Password: password}
}

func (a *Adapter) Source() domain.Source { return domain.SourceJobAlerts }

// Scrape connects to the configured mailbox, fetches unseen messages
// whose subject matches search_subject_any, marks them seen and returns
// the HTML bodies as a JSON array.
func (a *Adapter) Scrape(ctx context.Context) (string, error) {
	password, err := a.Password()
	if err != nil {
		return "", err
	}

	addr := a.cfg.IMAPHost
	if !strings.Contains(addr, ":") {
		port := a.cfg.IMAPPort
		if port == 0 {
			port = 993
		}
		addr = fmt.Sprintf("%s:%d", addr, port)
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return "", fmt.Errorf("imap dial: %w", err)
	}
	defer func() {
		_ = c.Logout().Wait()
		_ = c.Close()
	}()

	// best-effort close on cancel; the deferred Logout handles the rest
	done := make(chan struct{})
	defer close(done)
	go watchCancel(ctx, done, c)

	if err := c.Login(a.cfg.Username, password).Wait(); err != nil {
		return "", fmt.Errorf("imap login: %w", err)
	}

	mailbox := a.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return "", fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   time.Now().AddDate(0, -1, 0),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return "", fmt.Errorf("imap search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) > maxMessages {
		uids = uids[len(uids)-maxMessages:]
	}
	if len(uids) == 0 {
		return "[]", nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})

	var bodies []string
	var matched []imap.UID
	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			_ = fetchCmd.Close()
			return "", fmt.Errorf("imap fetch collect: %w", err)
		}

		subject := ""
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
		}
		if len(a.cfg.SearchSubjectAny) > 0 && !containsAnyCI(subject, a.cfg.SearchSubjectAny) {
			continue
		}

		raw := buf.FindBodySection(bodyAll)
		htmlBody := htmlPartOf(raw)
		if htmlBody == "" {
			continue
		}
		bodies = append(bodies, htmlBody)
		matched = append(matched, buf.UID)
	}
	if err := fetchCmd.Close(); err != nil {
		return "", fmt.Errorf("imap fetch: %w", err)
	}

	// mark processed digests seen so the next run skips them
	if len(matched) > 0 {
		seenSet := imap.UIDSetNum(matched...)
		storeCmd := c.Store(seenSet, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil)
		if err := storeCmd.Close(); err != nil {
			log.Printf("[jobalerts] mark seen failed: %v", err)
		}
	}

	b, err := json.Marshal(bodies)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// watchCancel closes the connection if ctx is cancelled mid-session.
// It exits when done closes, so it never outlives the run that spawned
// it.
func watchCancel(ctx context.Context, done <-chan struct{}, conn interface{ Close() error }) {
	select {
	case <-ctx.Done():
		_ = conn.Close()
	case <-done:
	}
}

func containsAnyCI(s string, needles []string) bool {
	ls := strings.ToLower(s)
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if strings.Contains(ls, n) {
			return true
		}
	}
	return false
}
