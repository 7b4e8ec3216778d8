package shared

// ListFilters carries common list query options for masterdata entities.
type ListFilters struct {
	Search  string
	Type    string
	Page    int
	Limit   int
	SortBy  string
	SortDir string
}

// Offset computes the row offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
