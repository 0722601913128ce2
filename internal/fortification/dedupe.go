package fortification

// Dedupe keeps the first row for every reference and preserves input order.
func Dedupe(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.Reference]; ok {
			continue
		}
		seen[row.Reference] = struct{}{}
		out = append(out, row)
	}
	return out
}
