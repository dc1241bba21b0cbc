// Package practicaspe scrapes internship listings from practicas.pe
// list pages.
//
// Card structure (checked Feb 2026):
//   - card:        div.bg-white
//   - employer:    h3.m-0 a
//   - title:       text parameter of the WhatsApp share link
//   - location:    first span of p.text-dark-gray
//   - salary:      span with an "S/ x,xxx" pattern
//   - description: p.text-dark-gray starting with "Pueden postular:"
//   - detail URL:  a.btn--mas-informacion href
package practicaspe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/util"
)

type Scraper struct {
	cfg     config.SiteSource
	filters config.Filters
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg config.SiteSource, filters config.Filters, limiter *util.HostLimiter) *Scraper {
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = []string{
			"https://www.practicas.pe/profesionales.php?departamento=13", // La Libertad
			"https://www.practicas.pe/profesionales.php?departamento=15", // Lima
		}
	}
	cfg.URLs = urls
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

func (s *Scraper) Source() domain.Source { return domain.SourcePracticasPe }

// Scrape fetches every configured list page (with pagination) and
// returns the page HTML documents as a JSON array. A page that fails to
// fetch is skipped; the run only fails when nothing could be fetched at
// all.
func (s *Scraper) Scrape(ctx context.Context) (string, error) {
	var pages []string
	var lastErr error

	for _, base := range s.cfg.URLs {
		for page := 1; page <= s.cfg.MaxPages; page++ {
			pageURL := base
			if page > 1 {
				pageURL = fmt.Sprintf("%s&pagina=%d", base, page)
			}

			body, err := s.fetchPage(ctx, pageURL)
			if err != nil {
				lastErr = err
				log.Printf("[practicaspe] fetch %s: %v", pageURL, err)
				break // move on to the next base URL
			}
			pages = append(pages, body)
		}
	}

	if len(pages) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("all list pages failed: %w", lastErr)
		}
		return "", fmt.Errorf("no list pages configured")
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
	req.Header.Set("User-Agent", "JobScout/1.0 (+local)")

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

var reSalary = regexp.MustCompile(`S/\s?\d[\d,]*(?:\.\d{2})?`)

// Parse turns the fetched list pages into candidates, applying the
// configured keyword/location filters. A malformed card is skipped, not
// fatal.
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
			return nil, fmt.Errorf("parse list html: %w", err)
		}

		doc.Find("div.bg-white").Each(func(_ int, card *goquery.Selection) {
			c, ok := parseCard(card)
			if !ok {
				return
			}
			if seen[c.URL] {
				return
			}
			seen[c.URL] = true

			if keep, why := scrape.ShouldKeep(s.filters, c); !keep {
				log.Printf("[practicaspe] skipped (%s) title=%q loc=%q", why, c.Title, c.Location)
				return
			}
			out = append(out, c)
		})
	}

	return out, nil
}

func parseCard(card *goquery.Selection) (domain.Candidate, bool) {
	var c domain.Candidate

	c.Employer = util.CleanText(card.Find("h3.m-0 a").First().Text())
	c.Title = titleFromShareLink(card)
	if c.Title == "" || c.Employer == "" {
		return c, false
	}

	card.Find("p.text-dark-gray").Each(func(_ int, p *goquery.Selection) {
		text := util.CleanText(p.Text())
		switch {
		case strings.HasPrefix(text, "Pueden postular:"):
			c.Description = text
		case c.Location == "":
			if span := util.CleanText(p.Find("span").First().Text()); span != "" && !reSalary.MatchString(span) {
				c.Location = util.NormalizeLocation(span)
			}
		}
		if c.Salary == "" {
			if m := reSalary.FindString(text); m != "" {
				c.Salary = m
			}
		}
	})

	if href, ok := card.Find("a.btn--mas-informacion").First().Attr("href"); ok {
		c.URL = absoluteURL(strings.TrimSpace(href))
	}
	if c.URL == "" {
		return c, false
	}
	return c, true
}

// titleFromShareLink recovers the listing title from the WhatsApp share
// link, the only place the site carries it in plain text.
func titleFromShareLink(card *goquery.Selection) string {
	var title string
	card.Find(`a[href*="wa.me"], a[href*="api.whatsapp.com"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		text := u.Query().Get("text")
		if text == "" {
			return true
		}
		// share text looks like "Practica de <title> en <site>"
		text = util.CleanText(text)
		text = strings.TrimPrefix(text, "Practica de ")
		text = strings.TrimPrefix(text, "Práctica de ")
		if i := strings.Index(text, " en practicas.pe"); i > 0 {
			text = text[:i]
		}
		title = text
		return false
	})
	return title
}

func absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://www.practicas.pe/" + strings.TrimPrefix(href, "/")
}
