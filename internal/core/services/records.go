package services

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// BuildRecords pairs chunk texts with their vectors into search records.
//
// Record i gets id ComposeChunkID(documentID, i) and its own copy of tags.
// Order is preserved and identical texts still produce distinct records.
func BuildRecords(documentID string, tags []string, texts []string, vectors [][]float32) ([]domain.SearchRecord, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", domain.ErrRecordCountMismatch, len(texts), len(vectors))
	}

	records := make([]domain.SearchRecord, len(texts))
	for i := range texts {
		records[i] = domain.SearchRecord{
			ID:         domain.ComposeChunkID(documentID, i),
			DocumentID: documentID,
			Text:       texts[i],
			Vector:     vectors[i],
			Tags:       domain.CloneTags(tags),
		}
	}
	return records, nil
}

// staleIDs returns the stored ids that records does not overwrite, sorted.
func staleIDs(stored []string, records []domain.SearchRecord) []string {
	keep := make(map[string]struct{}, len(records))
	for _, r := range records {
		keep[r.ID] = struct{}{}
	}
	var stale []string
	for _, id := range stored {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	slices.Sort(stale)
	return stale
}
