package wiki

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

var (
	itemLinkPattern   = regexp.MustCompile(`https?://www\.wikidata\.org/wiki/(Q\d+)`)
	itemConfigPattern = regexp.MustCompile(`"wgWikibaseItemId":"(Q\d+)"`)
)

const itemConfigKey = "wgWikibaseItemId"

// ItemIDLookup finds the Wikidata item an article is linked to.
type ItemIDLookup struct {
	fetcher fortification.PageFetcher
	logger  *zap.Logger
}

// NewItemIDLookup builds a lookup that fetches articles through fetcher.
func NewItemIDLookup(fetcher fortification.PageFetcher, logger *zap.Logger) *ItemIDLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemIDLookup{fetcher: fetcher, logger: logger}
}

// Lookup fetches the article and extracts its item id. Fetch and parse
// failures are logged and reported as absent.
func (l *ItemIDLookup) Lookup(ctx context.Context, reference string) (fortification.ExternalID, bool) {
	body, err := l.fetcher.Fetch(ctx, reference)
	if err != nil {
		l.logger.Warn("article fetch failed", zap.String("reference", reference), zap.Error(err))
		return "", false
	}
	id, ok, err := ExtractItemID(body)
	if err != nil {
		l.logger.Warn("article parse failed", zap.String("reference", reference), zap.Error(err))
		return "", false
	}
	return id, ok
}

// ExtractItemID returns the item id from the first anchor pointing at a
// Wikidata item, falling back to the page configuration script.
func ExtractItemID(body []byte) (fortification.ExternalID, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("parse article: %w", err)
	}

	var id fortification.ExternalID
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if m := itemLinkPattern.FindStringSubmatch(href); m != nil {
			id = fortification.ExternalID(m[1])
			return false
		}
		return true
	})
	if id != "" {
		return id, true, nil
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, itemConfigKey) {
			return true
		}
		if m := itemConfigPattern.FindStringSubmatch(text); m != nil {
			id = fortification.ExternalID(m[1])
			return false
		}
		return true
	})
	return id, id != "", nil
}
