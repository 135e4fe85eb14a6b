package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/tokenizer/bytelevel"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/normalisers"
	"github.com/custodia-labs/clever-documents/internal/postprocessors/chunker"
)

type ingestFixture struct {
	svc      *IngestService
	blobs    *mockBlobStore
	metadata *mockMetadataStore
	vectors  *mockIndex
	keywords *mockIndex
	embedder *mockEmbedder
}

// newIngestFixture wires a byte-level chunker with 100-token windows and no overlap.
func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	c, err := chunker.New(bytelevel.New(), chunker.WithMaxTokens(100), chunker.WithOverlap(0))
	require.NoError(t, err)

	f := &ingestFixture{
		blobs:    newMockBlobStore(),
		metadata: newMockMetadataStore(),
		vectors:  newMockIndex(),
		keywords: newMockIndex(),
		embedder: &mockEmbedder{},
	}
	f.svc, err = NewIngestService(IngestPorts{
		Chunker:     c,
		Embedder:    f.embedder,
		Blobs:       f.blobs,
		Metadata:    f.metadata,
		Vectors:     f.vectors,
		Keywords:    f.keywords,
		Normalisers: normalisers.NewDefaultRegistry(),
	}, nil)
	require.NoError(t, err)
	return f
}

func textRequest(id string, n int, tags ...string) domain.IngestRequest {
	return domain.IngestRequest{
		DocumentID: id,
		Filename:   id + ".txt",
		Data:       []byte(strings.Repeat("a", n)),
		Tags:       tags,
	}
}

func TestNewIngestService_MissingPort(t *testing.T) {
	_, err := NewIngestService(IngestPorts{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPort)
}

func TestNewIngestService_KeywordsOptional(t *testing.T) {
	f := newIngestFixture(t)
	ports := f.svc.ports
	ports.Keywords = nil

	svc, err := NewIngestService(ports, nil)
	require.NoError(t, err)

	report, err := svc.Ingest(context.Background(), textRequest("doc", 150))
	require.NoError(t, err)
	assert.Equal(t, 2, report.ChunkCount)
	assert.Len(t, f.vectors.ids(), 2)
}

func TestIngest_Success(t *testing.T) {
	f := newIngestFixture(t)

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 250, "guide"))
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, report.State)
	assert.False(t, report.Failed())
	assert.Equal(t, 3, report.ChunkCount)
	assert.NotEmpty(t, report.RunID)
	assert.Contains(t, report.Durations, domain.StageEmbedded)

	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1", "doc_chunk2"}, f.vectors.ids())
	assert.Equal(t, f.vectors.ids(), f.keywords.ids())

	rec := f.vectors.records["doc_chunk2"]
	assert.Equal(t, "doc", rec.DocumentID)
	assert.Equal(t, strings.Repeat("a", 50), rec.Text)
	assert.Equal(t, []float32{50}, rec.Vector)
	assert.Equal(t, []string{"guide"}, rec.Tags)

	meta, err := f.metadata.Get(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.ChunkCount)
	assert.Equal(t, "mem://doc", meta.Location)
	assert.Equal(t, "text/plain", meta.ContentType)
}

func TestIngest_DefaultTags(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.svc.Ingest(context.Background(), textRequest("doc", 10))
	require.NoError(t, err)

	assert.Equal(t, DefaultTags, f.vectors.records["doc_chunk0"].Tags)
}

func TestIngest_EmptyDocument(t *testing.T) {
	f := newIngestFixture(t)

	report, err := f.svc.Ingest(context.Background(), textRequest("empty", 0))
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, report.State)
	assert.Equal(t, 0, report.ChunkCount)
	assert.Empty(t, f.vectors.ids())
	assert.Equal(t, 0, f.embedder.callCount())
}

func TestIngest_EmbedFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.embedder.err = fmt.Errorf("%w: batch 2 failed", domain.ErrEmbeddingServiceUnavailable)

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 250))
	require.Error(t, err)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageEmbedded, stageErr.Stage)
	assert.ErrorIs(t, err, domain.ErrEmbeddingServiceUnavailable)

	assert.True(t, report.Failed())
	assert.Equal(t, domain.StageEmbedded, report.FailedStage)
	assert.Empty(t, f.vectors.ids())

	_, err = f.metadata.Get(context.Background(), "doc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_VectorFailureRollsBack(t *testing.T) {
	f := newIngestFixture(t)
	f.vectors.upsertErr = errors.New("disk full")
	f.vectors.failAfter = 1

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 250))
	require.Error(t, err)

	assert.Equal(t, domain.StageIndexed, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Empty(t, f.vectors.ids())
	assert.Contains(t, f.vectors.deletes, "doc")
}

func TestIngest_KeywordFailureRollsBackVectors(t *testing.T) {
	f := newIngestFixture(t)
	f.keywords.upsertErr = errors.New("index locked")

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 250))
	require.Error(t, err)

	assert.Equal(t, domain.StageIndexed, report.FailedStage)
	assert.Empty(t, f.vectors.ids())
	assert.Empty(t, f.keywords.ids())
}

func TestIngest_ReprocessPrunesStaleChunks(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.NoError(t, err)
	require.Len(t, f.vectors.ids(), 3)

	report, err := f.svc.Ingest(ctx, textRequest("doc", 150))
	require.NoError(t, err)

	assert.Equal(t, 2, report.ChunkCount)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1"}, f.vectors.ids())
	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1"}, f.keywords.ids())
	assert.Equal(t, []float32{50}, f.vectors.records["doc_chunk1"].Vector)
}

func TestIngest_SameContentTwiceIsIdempotent(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.NoError(t, err)
	first := f.vectors.ids()

	report, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Pruned)
	assert.Equal(t, first, f.vectors.ids())
}

func TestIngest_MissingDocumentID(t *testing.T) {
	f := newIngestFixture(t)

	report, err := f.svc.Ingest(context.Background(), textRequest("", 10))
	require.Error(t, err)

	assert.Equal(t, domain.StageUploaded, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.blobs.blobs)
}

func TestIngest_UnsupportedContent(t *testing.T) {
	f := newIngestFixture(t)
	req := textRequest("doc", 10)
	req.ContentType = "application/x-unknown"

	report, err := f.svc.Ingest(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, domain.StageUploaded, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrUnsupportedContent)
}

func TestIngest_BlobFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.blobs.err = errors.New("bucket missing")

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 10))
	require.Error(t, err)

	assert.Equal(t, domain.StageUploaded, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestIngest_Cancelled(t *testing.T) {
	f := newIngestFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StageUploaded, report.FailedStage)
	assert.Empty(t, f.blobs.blobs)
	assert.Equal(t, 0, f.embedder.callCount())
}

func TestIngest_MetadataFailureIsNotFatal(t *testing.T) {
	f := newIngestFixture(t)
	f.metadata.upsertErr = errors.New("read-only database")

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 250))
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, report.State)
	assert.Len(t, f.vectors.ids(), 3)
}

func TestIngest_MetadataLookupFailureStillPrunes(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.NoError(t, err)

	f.metadata.getErr = errors.New("timeout")
	report, err := f.svc.Ingest(ctx, textRequest("doc", 150))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1"}, f.vectors.ids())
}

func TestIngest_PrunesAfterLostMetadataWrite(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	// The first run indexes three chunks but never records its chunk count.
	f.metadata.upsertErr = errors.New("read-only database")
	_, err := f.svc.Ingest(ctx, textRequest("doc", 250, "old"))
	require.NoError(t, err)
	_, err = f.metadata.Get(ctx, "doc")
	require.ErrorIs(t, err, domain.ErrNotFound)

	f.metadata.upsertErr = nil
	report, err := f.svc.Ingest(ctx, textRequest("doc", 150, "new"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1"}, f.vectors.ids())
	assert.Equal(t, []string{"doc_chunk0", "doc_chunk1"}, f.keywords.ids())

	hits, err := f.vectors.Query(ctx, []float32{0}, []string{"old"}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "no record of the old version may stay searchable")
}

func TestIngest_PruneFailureFailsIndexed(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, textRequest("doc", 250))
	require.NoError(t, err)

	f.vectors.deleteErr = errors.New("disk full")
	report, err := f.svc.Ingest(ctx, textRequest("doc", 150))
	require.Error(t, err)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageIndexed, stageErr.Stage)
	assert.Equal(t, domain.StageIndexed, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Empty(t, f.vectors.ids())
	assert.Empty(t, f.keywords.ids())
}

func TestIngest_KeywordListFailureFailsIndexed(t *testing.T) {
	f := newIngestFixture(t)
	f.keywords.listErr = errors.New("index closed")

	report, err := f.svc.Ingest(context.Background(), textRequest("doc", 150))
	require.Error(t, err)

	assert.Equal(t, domain.StageIndexed, report.FailedStage)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Empty(t, f.vectors.ids())
}

func TestIngestMany(t *testing.T) {
	f := newIngestFixture(t)
	reqs := []domain.IngestRequest{
		textRequest("a", 150),
		textRequest("", 10),
		textRequest("c", 50),
	}

	reports, err := f.svc.IngestMany(context.Background(), reqs, 2)
	require.Error(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, domain.StageComplete, reports[0].State)
	assert.Equal(t, domain.StageUploaded, reports[1].FailedStage)
	assert.Equal(t, domain.StageComplete, reports[2].State)
	assert.Equal(t, []string{"a_chunk0", "a_chunk1", "c_chunk0"}, f.vectors.ids())

	var stageErr *domain.StageError
	assert.ErrorAs(t, err, &stageErr)
}

func TestDocumentIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"docs/guide.md", "guide"},
		{"/tmp/report.final.pdf", "report.final"},
		{"README", "README"},
		{".env", ".env"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentIDFromPath(tt.path))
		})
	}
}
