package domain

// SearchMode selects which index answers a query.
type SearchMode string

const (
	// SearchModeSemantic embeds the query and asks the vector index.
	SearchModeSemantic SearchMode = "semantic"

	// SearchModeKeyword asks the full-text index.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeHybrid merges both by reciprocal rank fusion.
	SearchModeHybrid SearchMode = "hybrid"
)

// DefaultTopK is the default number of results.
const DefaultTopK = 5

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK is the maximum number of results.
	TopK int

	// Tags filters to records carrying any of these tags. Empty matches all.
	Tags []string

	// Mode selects the index. Empty means semantic.
	Mode SearchMode
}

// SearchHit is a ranked record.
type SearchHit struct {
	Record SearchRecord `json:"record"`
	Score  float64      `json:"score"`
}

// MatchesAnyTag reports whether recordTags contains any of filter.
// An empty filter matches every record.
func MatchesAnyTag(recordTags, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range recordTags {
			if have == want {
				return true
			}
		}
	}
	return false
}
