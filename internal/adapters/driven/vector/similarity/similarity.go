// Package similarity ranks stored vectors against a query by cosine similarity.
package similarity

import (
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// Query is a search vector. Its magnitude is kept to reject zero queries
// before any scoring.
type Query struct {
	vec search.Float32s
	mag float32
}

// NewQuery prepares v for repeated scoring.
func NewQuery(v []float32) Query {
	f := search.Float32s(v)
	return Query{vec: f, mag: f.Magnitude()}
}

// Score returns the cosine similarity of v to the query, in [-1, 1].
// Zero vectors and dimension mismatches score false.
func (q Query) Score(v []float32) (float64, bool) {
	if len(v) != len(q.vec) || q.mag == 0 {
		return 0, false
	}
	if search.Float32s(v).Magnitude() == 0 {
		return 0, false
	}
	d := q.vec.CosineDistance(v)
	if math.IsNaN(float64(d)) {
		return 0, false
	}
	return 1 - float64(d), true
}

// TopK keeps the k best hits, highest score first. Ties order by record id.
func TopK(hits []domain.SearchHit, k int) []domain.SearchHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
