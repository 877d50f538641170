// Package seo generates robots.txt and sitemap.xml for the marketing site.
package seo

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// SitemapNamespace is the sitemaps.org protocol namespace.
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Page is one sitemap entry. LastMod is YYYY-MM-DD or empty.
type Page struct {
	Path       string
	ChangeFreq string
	Priority   float64
	LastMod    string
}

// Robots renders a robots.txt that allows everything except the disallowed
// paths and points crawlers at the sitemap.
func Robots(baseURL string, disallow []string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	if len(disallow) == 0 {
		b.WriteString("Disallow:\n")
	}
	for _, path := range disallow {
		fmt.Fprintf(&b, "Disallow: %s\n", path)
	}
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", strings.TrimRight(baseURL, "/"))
	return b.String()
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []urlEntry
}

type urlEntry struct {
	XMLName    xml.Name `xml:"url"`
	Loc        string   `xml:"loc"`
	LastMod    string   `xml:"lastmod"`
	ChangeFreq string   `xml:"changefreq,omitempty"`
	Priority   string   `xml:"priority"`
}

// Sitemap renders the sitemap for pages. Pages without a LastMod use now's
// date. Duplicate paths keep their first entry.
func Sitemap(baseURL string, pages []Page, now time.Time) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	set := urlSet{Xmlns: SitemapNamespace}
	seen := make(map[string]bool, len(pages))

	for _, p := range pages {
		if seen[p.Path] {
			continue
		}
		seen[p.Path] = true

		lastMod := p.LastMod
		if lastMod == "" {
			lastMod = now.UTC().Format(time.DateOnly)
		}

		set.URLs = append(set.URLs, urlEntry{
			Loc:        base + p.Path,
			LastMod:    lastMod,
			ChangeFreq: p.ChangeFreq,
			Priority:   fmt.Sprintf("%.1f", clamp(p.Priority)),
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
