// Package wiki reads Wikipedia HTML: the fortification listing page and the
// Wikidata item linked from each article.
package wiki

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

const articlePrefix = "/wiki/"

// excludedMarkers are namespace and listing fragments that never point at a site article.
var excludedMarkers = []string{
	"Ficheiro:",
	"Categoria:",
	"Especial:",
	"Ajuda:",
	"Wikipédia:",
	"Predefinição:",
	"Lista_de_",
	"Utilizador:",
	"Discussão:",
}

// Listing is the result of scanning a listing page.
type Listing struct {
	// LinksSeen counts every anchor with an href, before any filtering.
	LinksSeen  int
	Candidates []fortification.Candidate
}

// DiscoverCandidates extracts article links from the listing page body. The
// reference of each candidate is the listing's scheme and host joined with
// the raw href, so the href's percent-encoding is preserved.
func DiscoverCandidates(listingURL string, body []byte) (Listing, error) {
	base, err := siteBase(listingURL)
	if err != nil {
		return Listing{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Listing{}, fmt.Errorf("parse listing page: %w", err)
	}

	var listing Listing
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		listing.LinksSeen++
		href, _ := s.Attr("href")
		if !isArticleHref(href) {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		listing.Candidates = append(listing.Candidates, fortification.Candidate{
			DisplayName: text,
			Reference:   base + href,
		})
	})
	return listing, nil
}

func isArticleHref(href string) bool {
	if !strings.HasPrefix(href, articlePrefix) {
		return false
	}
	for _, marker := range excludedMarkers {
		if strings.Contains(href, marker) {
			return false
		}
	}
	return true
}

func siteBase(listingURL string) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("listing url %q is not absolute", listingURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
