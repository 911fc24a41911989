// Package sitemap renders sitemaps.org XML for the public site.
package sitemap

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL is one <url> node.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Source is everything the sitemap lists.
type Source struct {
	Recipes    []repository.RecipeRef
	Categories []domain.Category
	Pages      []domain.Page
}

// URLs lists the entries in output order: home, pages with a path,
// categories, the recipe index, then every recipe.
func URLs(siteURL string, today time.Time, src Source) []URL {
	base := strings.TrimRight(siteURL, "/")
	day := today.UTC().Format(time.DateOnly)

	urls := make([]URL, 0, 2+len(src.Pages)+len(src.Categories)+len(src.Recipes))
	urls = append(urls, URL{Loc: base + "/", LastMod: day, ChangeFreq: "daily", Priority: "1.00"})
	for _, p := range src.Pages {
		if p.Path == "" {
			continue
		}
		urls = append(urls, URL{Loc: base + ensureSlash(p.Path), LastMod: day, ChangeFreq: "monthly", Priority: "0.80"})
	}
	for _, c := range src.Categories {
		urls = append(urls, URL{Loc: base + "/kategori/" + c.Slug, LastMod: day, ChangeFreq: "weekly", Priority: "0.90"})
	}
	urls = append(urls, URL{Loc: base + "/recept", LastMod: day, ChangeFreq: "weekly", Priority: "0.80"})
	for _, r := range src.Recipes {
		urls = append(urls, URL{Loc: base + "/recept/" + r.Slug, LastMod: lastMod(r.DatePublished, day), ChangeFreq: "weekly", Priority: "0.70"})
	}
	return urls
}

// Build renders the sitemap document.
func Build(siteURL string, today time.Time, src Source) ([]byte, error) {
	body, err := xml.MarshalIndent(urlset{Xmlns: xmlns, URLs: URLs(siteURL, today, src)}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// lastMod keeps the date part of a published timestamp, falling back to
// today when it is missing or unparseable.
func lastMod(published, today string) string {
	published = strings.TrimSpace(published)
	if len(published) < len(time.DateOnly) {
		return today
	}
	day := published[:len(time.DateOnly)]
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return today
	}
	return day
}

func ensureSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
