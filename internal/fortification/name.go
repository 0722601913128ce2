package fortification

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedReference is returned when an article reference cannot be decoded.
var ErrMalformedReference = errors.New("malformed reference")

const articlePathMarker = "/wiki/"

var (
	spaceBeforeParen = regexp.MustCompile(`\s+\(`)
	trailingParen    = regexp.MustCompile(`\s*\([^)]*\)$`)
)

// NameFromReference derives a display name from the article segment of a
// reference: percent-decoded, underscores as spaces, trailing parenthetical
// qualifier removed.
func NameFromReference(reference string) (string, error) {
	decoded, err := url.PathUnescape(reference)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedReference, reference, err)
	}
	tail := decoded
	if idx := strings.LastIndex(decoded, articlePathMarker); idx >= 0 {
		tail = decoded[idx+len(articlePathMarker):]
	}
	name := strings.ReplaceAll(tail, "_", " ")
	name = strings.ReplaceAll(name, "(", " (")
	name = spaceBeforeParen.ReplaceAllString(name, " (")
	name = trailingParen.ReplaceAllString(name, "")
	return norm.NFC.String(name), nil
}

// ResolveName returns the name derived from reference when it is more complete
// than currentName, and currentName otherwise. Comparisons are case-insensitive.
func ResolveName(reference, currentName string) (string, error) {
	cleaned, err := NameFromReference(reference)
	if err != nil {
		return currentName, err
	}
	cleanedLower := strings.ToLower(cleaned)
	currentLower := strings.ToLower(norm.NFC.String(currentName))

	for _, term := range namingTerms {
		if strings.Contains(cleanedLower, term) && !strings.Contains(currentLower, term) {
			return cleaned, nil
		}
	}
	if strings.Contains(cleanedLower, currentLower) &&
		utf8.RuneCountInString(cleaned) > utf8.RuneCountInString(currentName) {
		return cleaned, nil
	}
	return currentName, nil
}

// NameResolver wraps ResolveName and turns failures into a logged fallback.
type NameResolver struct {
	logger *zap.Logger
}

// NewNameResolver builds a NameResolver; a nil logger discards diagnostics.
func NewNameResolver(logger *zap.Logger) *NameResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NameResolver{logger: logger}
}

// Resolve never fails: on a malformed reference it logs and keeps currentName.
func (r *NameResolver) Resolve(reference, currentName string) string {
	name, err := ResolveName(reference, currentName)
	if err != nil {
		r.logger.Warn("name extraction failed; keeping link label",
			zap.String("reference", reference),
			zap.String("name", currentName),
			zap.Error(err),
		)
		return currentName
	}
	return name
}
