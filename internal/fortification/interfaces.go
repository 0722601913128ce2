package fortification

import (
	"context"
	"io"
)

// PageFetcher retrieves the raw body of an HTML page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// ItemIDLookup finds the Wikidata item linked from an article page.
type ItemIDLookup interface {
	Lookup(ctx context.Context, reference string) (ExternalID, bool)
}

// CoordinateLookup resolves the coordinate claim of a Wikidata item.
type CoordinateLookup interface {
	Lookup(ctx context.Context, id ExternalID) (Coordinate, bool)
}

// BlobStore writes output artifacts and returns a URI for them.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// RowStore persists the final dataset.
type RowStore interface {
	StoreRows(ctx context.Context, rows []Row) error
}
