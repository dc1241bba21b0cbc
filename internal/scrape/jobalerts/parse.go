package jobalerts

import (
	"encoding/json"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/util"
)

var (
	reJobID  = regexp.MustCompile(`/jobs/view/(\d+)`)
	reSalary = regexp.MustCompile(`(?:S/|\$)\s?\d[\d,]*(?:\.\d{2})?(?:\s*-\s*(?:S/|\$)\s?\d[\d,]*(?:\.\d{2})?)?`)
)

// Parse extracts job cards from the digest HTML bodies produced by
// Scrape. Alert templates put several anchors on each job (logo, title,
// footer CTA), so anchors are merged by job id before emitting.
func (a *Adapter) Parse(raw string) ([]domain.Candidate, error) {
	var bodies []string
	if err := json.Unmarshal([]byte(raw), &bodies); err != nil {
		return nil, err
	}

	byKey := map[string]*domain.Candidate{}
	var order []string

	for _, body := range bodies {
		if err := parseAlertBody(body, byKey, &order); err != nil {
			log.Printf("[jobalerts] skipping malformed alert body: %v", err)
		}
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		c := byKey[key]
		if c.Title == "" || c.URL == "" {
			continue
		}
		c.Fingerprint = util.Fingerprint(c.Title, c.Employer)
		if keep, why := scrape.ShouldKeep(a.filters, *c); !keep {
			log.Printf("[jobalerts] filtered %q: %s", c.Title, why)
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func parseAlertBody(body string, byKey map[string]*domain.Candidate, order *[]string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return err
	}

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !looksLikeJobURL(href) {
			return
		}

		jobURL := unwrapRedirect(href)
		if jobURL == "" {
			return
		}

		key := jobKey(jobURL)
		c, ok := byKey[key]
		if !ok {
			c = &domain.Candidate{URL: jobURL}
			byKey[key] = c
			*order = append(*order, key)
		}

		if t := titleCandidate(util.CleanText(anchor.Text())); betterTitle(t, c.Title) {
			c.Title = t
		}

		card := anchor.Closest("table")
		if card.Length() == 0 {
			card = anchor.Closest("tr")
		}
		if card.Length() == 0 {
			card = anchor.Parent()
		}

		// "Employer · Location" rows sit in a <p> near the link
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := util.CleanText(p.Text())
			if t == "" {
				return
			}
			if c.Employer == "" && c.Location == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				c.Employer = strings.TrimSpace(parts[0])
				c.Location = util.NormalizeLocation(parts[1])
				return
			}
			if t2 := titleCandidate(t); !strings.Contains(t2, " · ") && betterTitle(t2, c.Title) {
				c.Title = t2
			}
		})

		if c.Salary == "" {
			if blob := util.CleanText(card.Text()); blob != "" {
				c.Salary = strings.TrimSpace(reSalary.FindString(blob))
			}
		}
	})

	return nil
}

func looksLikeJobURL(href string) bool {
	h := strings.ToLower(href)
	return strings.Contains(h, "/jobs/view/") || strings.Contains(h, "/comm/jobs/view/")
}

func jobKey(jobURL string) string {
	if m := reJobID.FindStringSubmatch(jobURL); len(m) == 2 {
		return "alert:" + m[1]
	}
	return jobURL
}

// unwrapRedirect resolves tracking wrappers (?url= and google /url?q=)
// down to the destination URL.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	if u.Host != "" {
		return u.String()
	}
	return href
}

// titleCandidate rejects obvious non-titles before scoring.
func titleCandidate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, junk := range []string{"Actively recruiting", "Easy Apply", "Promoted"} {
		s = strings.TrimSpace(strings.ReplaceAll(s, junk, ""))
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "unsubscribe") ||
		strings.Contains(low, "applicants") ||
		strings.Contains(low, "connections") {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// betterTitle prefers the candidate only when it is clearly more
// title-shaped than what we have, so later anchors don't flip-flop an
// already-good pick.
func betterTitle(candidate, current string) bool {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return false
	}
	if strings.TrimSpace(current) == "" {
		return titleScore(c) >= 0
	}
	return titleScore(c) >= titleScore(current)+3
}

func titleScore(s string) int {
	l := strings.ToLower(s)
	score := 0

	if strings.Contains(l, "http://") || strings.Contains(l, "https://") {
		return -30
	}
	for _, bad := range []string{"apply", "view job", "see details", "learn more", "sign in"} {
		if strings.Contains(l, bad) {
			score -= 6
		}
	}
	if strings.ContainsAny(s, "$€£") || strings.Contains(s, "S/") {
		score -= 8
	}

	n := len([]rune(s))
	switch {
	case n >= 6 && n <= 80:
		score += 2
	case n < 4 || n > 140:
		score -= 6
	}

	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 6 {
		score -= 4
	}
	return score
}
