package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driving"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// rrfK dampens the weight of top ranks in reciprocal rank fusion.
const rrfK = 60

// SearchService answers tag-filtered queries against the indexes.
type SearchService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex
}

// NewSearchService creates a new search service.
// keywords is optional; without it only semantic search is available.
func NewSearchService(
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
) *SearchService {
	return &SearchService{
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
	}
}

// Search returns up to opts.TopK records for query whose tags match any of opts.Tags.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.SearchModeSemantic
	}

	logger.Section("Search")
	logger.Debug("search", "query", query, "mode", string(mode), "top_k", topK, "tags", opts.Tags)

	switch mode {
	case domain.SearchModeSemantic:
		return s.semantic(ctx, query, opts.Tags, topK)
	case domain.SearchModeKeyword:
		return s.keyword(ctx, query, opts.Tags, topK)
	case domain.SearchModeHybrid:
		return s.hybrid(ctx, query, opts.Tags, topK)
	}
	return nil, fmt.Errorf("%w: search mode %q", domain.ErrInvalidInput, mode)
}

func (s *SearchService) semantic(ctx context.Context, query string, tags []string, topK int) ([]domain.SearchHit, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, fmt.Errorf("%w: semantic search needs an embedder and a vector index", domain.ErrSearchUnavailable)
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vectors.Query(ctx, vector, tags, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

func (s *SearchService) keyword(ctx context.Context, query string, tags []string, topK int) ([]domain.SearchHit, error) {
	if s.keywords == nil {
		return nil, fmt.Errorf("%w: keyword index disabled", domain.ErrSearchUnavailable)
	}
	hits, err := s.keywords.Search(ctx, query, tags, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	return hits, nil
}

// hybrid runs both searches in parallel and degrades to whichever succeeded.
func (s *SearchService) hybrid(ctx context.Context, query string, tags []string, topK int) ([]domain.SearchHit, error) {
	var (
		wg              sync.WaitGroup
		semHits, kwHits []domain.SearchHit
		semErr, kwErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		semHits, semErr = s.semantic(ctx, query, tags, topK*2)
	}()
	go func() {
		defer wg.Done()
		kwHits, kwErr = s.keyword(ctx, query, tags, topK*2)
	}()
	wg.Wait()

	switch {
	case semErr != nil && kwErr != nil:
		return nil, fmt.Errorf("hybrid search: semantic=%w, keyword=%w", semErr, kwErr)
	case semErr != nil:
		logger.Warn("hybrid search: semantic search failed, using keyword results only", "error", semErr)
		return truncate(kwHits, topK), nil
	case kwErr != nil:
		logger.Warn("hybrid search: keyword search failed, using semantic results only", "error", kwErr)
		return truncate(semHits, topK), nil
	}

	merged := reciprocalRankFusion(rrfK, semHits, kwHits)
	logger.Debug("hybrid merge", "semantic", len(semHits), "keyword", len(kwHits), "merged", len(merged))
	return truncate(merged, topK), nil
}

// reciprocalRankFusion merges ranked lists; score is the sum of 1/(k+rank+1).
// Ties keep first-seen order.
func reciprocalRankFusion(k int, lists ...[]domain.SearchHit) []domain.SearchHit {
	scores := make(map[string]float64)
	records := make(map[string]domain.SearchRecord)
	var order []string

	for _, list := range lists {
		for rank, hit := range list {
			id := hit.Record.ID
			if _, ok := records[id]; !ok {
				order = append(order, id)
				records[id] = hit.Record
			} else if len(records[id].Vector) == 0 && len(hit.Record.Vector) > 0 {
				records[id] = hit.Record
			}
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}

	merged := make([]domain.SearchHit, 0, len(order))
	for _, id := range order {
		merged = append(merged, domain.SearchHit{Record: records[id], Score: scores[id]})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func truncate(hits []domain.SearchHit, n int) []domain.SearchHit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
