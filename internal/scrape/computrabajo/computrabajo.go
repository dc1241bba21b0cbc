// Package computrabajo scrapes job listings from pe.computrabajo.com
// category pages. Listing cards are article.box_offer elements; the
// title anchor (a.js-o-link) carries the offer URL.
package computrabajo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/util"
)

const baseHost = "https://pe.computrabajo.com"

type Scraper struct {
	cfg     config.SiteSource
	filters config.Filters
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg config.SiteSource, filters config.Filters, limiter *util.HostLimiter) *Scraper {
	if len(cfg.URLs) == 0 {
		cfg.URLs = []string{
			baseHost + "/trabajo-de-desarrollador-en-la-libertad?pubdate=7",
			baseHost + "/trabajo-de-desarrollador-en-lima?pubdate=7",
			baseHost + "/empleos-de-informatica-y-telecom-en-lima?pubdate=7",
		}
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 5
	}
	return &Scraper{
		cfg:     cfg,
		filters: filters,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Source() domain.Source { return domain.SourceCompuTrabajo }

// Scrape fetches the configured category pages plus pagination and
// returns the HTML documents as a JSON array.
func (s *Scraper) Scrape(ctx context.Context) (string, error) {
	var pages []string
	var lastErr error

	for _, base := range s.cfg.URLs {
		for page := 1; page <= s.cfg.MaxPages; page++ {
			pageURL := base
			if page > 1 {
				sep := "?"
				if strings.Contains(base, "?") {
					sep = "&"
				}
				pageURL = fmt.Sprintf("%s%sp=%d", base, sep, page)
			}

			body, err := s.fetchPage(ctx, pageURL)
			if err != nil {
				lastErr = err
				log.Printf("[computrabajo] fetch %s: %v", pageURL, err)
				break
			}
			pages = append(pages, body)

			// stop paging once a page carries no offer cards
			if !strings.Contains(body, "box_offer") {
				break
			}
		}
	}

	if len(pages) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("all category pages failed: %w", lastErr)
		}
		return "", fmt.Errorf("no category pages configured")
	}

	b, err := json.Marshal(pages)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Scraper) fetchPage(ctx context.Context, pageURL string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, pageURL); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) JobScout/1.0")
	req.Header.Set("Accept-Language", "es-PE,es;q=0.9")

	res, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", res.StatusCode)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// Parse extracts candidates from the fetched category pages. Malformed
// cards are skipped individually.
func (s *Scraper) Parse(raw string) ([]domain.Candidate, error) {
	var pages []string
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var out []domain.Candidate
	seen := map[string]bool{}

	for _, page := range pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			return nil, fmt.Errorf("parse category html: %w", err)
		}

		doc.Find("article.box_offer").Each(func(_ int, card *goquery.Selection) {
			c, ok := parseCard(card)
			if !ok {
				return
			}
			if seen[c.URL] {
				return
			}
			seen[c.URL] = true

			if keep, why := scrape.ShouldKeep(s.filters, c); !keep {
				log.Printf("[computrabajo] skipped (%s) title=%q loc=%q", why, c.Title, c.Location)
				return
			}
			out = append(out, c)
		})
	}

	return out, nil
}

func parseCard(card *goquery.Selection) (domain.Candidate, bool) {
	var c domain.Candidate

	titleLink := card.Find("a.js-o-link").First()
	c.Title = util.CleanText(titleLink.Text())
	if href, ok := titleLink.Attr("href"); ok {
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "/") {
			href = baseHost + href
		}
		c.URL = href
	}

	c.Employer = util.CleanText(card.Find("a.fc_base").First().Text())
	if c.Employer == "" {
		// confidential postings render the employer as plain text
		c.Employer = util.CleanText(card.Find("p.dIB span").First().Text())
	}

	c.Location = util.NormalizeLocation(card.Find("p.fs16 span.mr10").First().Text())
	c.Salary = util.CleanText(card.Find("span.tag.base").First().Text())
	c.Description = util.CleanText(card.Find("p.fc_aux").First().Text())

	if c.Title == "" || c.URL == "" {
		return c, false
	}
	if c.Employer == "" {
		c.Employer = "Confidencial"
	}
	return c, true
}
