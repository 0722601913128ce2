package fortification

import "strings"

// IsCandidateRelevant reports whether a listing link plausibly points at a
// fortification. The name is checked first, then the raw reference.
func IsCandidateRelevant(name, reference string) bool {
	return containsAnyTerm(name, filterTerms) || containsAnyTerm(reference, filterTerms)
}

// FilterCandidates keeps the candidates accepted by IsCandidateRelevant.
func FilterCandidates(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsCandidateRelevant(c.DisplayName, c.Reference) {
			out = append(out, c)
		}
	}
	return out
}

func containsAnyTerm(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
