package site

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"steelcraft-site/internal/domain"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Sitemap writes /sitemap.xml: static pages, every service page and the given
// published articles. Static and service pages use now as lastmod.
func (r *Renderer) Sitemap(w io.Writer, articles []domain.Article) error {
	now := r.now().UTC().Format(time.RFC3339)
	set := urlset{NS: sitemapNS}
	add := func(path, lastmod, freq, priority string) {
		set.URLs = append(set.URLs, sitemapURL{Loc: r.absolute(path), LastMod: lastmod, ChangeFreq: freq, Priority: priority})
	}

	add("/", now, "daily", "1.0")
	add("/services", now, "weekly", "0.9")
	add("/gallery", now, "monthly", "0.8")
	add("/article", now, "daily", "0.8")
	add("/kontakty", now, "yearly", "0.7")

	for _, s := range r.catalog.All() {
		switch {
		case s.IsMainService:
			add(r.catalog.CanonicalPath(s), now, "monthly", "0.8")
		default:
			if _, ok := r.catalog.Parent(s); ok {
				add(r.catalog.CanonicalPath(s), now, "monthly", "0.7")
			}
		}
	}

	for _, a := range articles {
		if !a.Published {
			continue
		}
		lastmod := ""
		if t := a.LastModified(); !t.IsZero() {
			lastmod = t.UTC().Format(time.RFC3339)
		}
		add("/article/"+a.Slug, lastmod, "monthly", "0.7")
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("site: encode sitemap: %w", err)
	}
	return enc.Flush()
}

// Robots writes /robots.txt.
func (r *Renderer) Robots(w io.Writer) error {
	_, err := fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: %s\n", r.absolute("/sitemap.xml"))
	return err
}
