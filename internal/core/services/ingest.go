package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driving"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// ErrMissingPort is returned when a required collaborator is nil.
var ErrMissingPort = errors.New("missing required port")

// DefaultTags are applied when a request carries no tags.
var DefaultTags = []string{"technical section"}

// IngestPorts are the collaborators of the ingest pipeline.
// Keywords is optional.
type IngestPorts struct {
	Chunker     driven.Chunker
	Embedder    driven.EmbeddingService
	Blobs       driven.BlobStore
	Metadata    driven.MetadataStore
	Vectors     driven.VectorIndex
	Keywords    driven.KeywordIndex
	Normalisers driven.NormaliserRegistry
}

// Validate checks that all required ports are set.
func (p *IngestPorts) Validate() error {
	switch {
	case p.Chunker == nil:
		return fmt.Errorf("%w: chunker", ErrMissingPort)
	case p.Embedder == nil:
		return fmt.Errorf("%w: embedder", ErrMissingPort)
	case p.Blobs == nil:
		return fmt.Errorf("%w: blob store", ErrMissingPort)
	case p.Metadata == nil:
		return fmt.Errorf("%w: metadata store", ErrMissingPort)
	case p.Vectors == nil:
		return fmt.Errorf("%w: vector index", ErrMissingPort)
	case p.Normalisers == nil:
		return fmt.Errorf("%w: normaliser registry", ErrMissingPort)
	}
	return nil
}

// IngestService runs documents through upload, chunk, embed and index.
//
// A run holds no state shared with other runs, so independent documents
// may be ingested concurrently.
type IngestService struct {
	ports       IngestPorts
	defaultTags []string
	tracer      trace.Tracer
	now         func() time.Time
}

// NewIngestService creates the pipeline orchestrator.
// defaultTags replace DefaultTags when non-empty.
func NewIngestService(ports IngestPorts, defaultTags []string) (*IngestService, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if len(defaultTags) == 0 {
		defaultTags = DefaultTags
	}
	return &IngestService{
		ports:       ports,
		defaultTags: domain.CloneTags(defaultTags),
		tracer:      otel.Tracer("github.com/custodia-labs/clever-documents/ingest"),
		now:         time.Now,
	}, nil
}

// run is the pipeline-local state of one ingest run. Nothing here outlives it.
type run struct {
	req      domain.IngestRequest
	report   *domain.RunReport
	doc      domain.Document
	location string
	chunks   []domain.Chunk
	vectors  [][]float32
}

// Ingest processes one document through every stage.
// A failed stage stops the run; later stages never execute.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.RunReport, error) {
	r := &run{
		req: req,
		report: &domain.RunReport{
			RunID:      uuid.NewString(),
			DocumentID: req.DocumentID,
			StartedAt:  s.now(),
			Durations:  make(map[domain.Stage]time.Duration),
		},
	}

	ctx, span := s.tracer.Start(ctx, "ingest",
		trace.WithAttributes(
			attribute.String("document.id", req.DocumentID),
			attribute.String("run.id", r.report.RunID),
		))
	defer span.End()

	logger.Section("Ingest " + req.DocumentID)

	steps := []struct {
		stage domain.Stage
		fn    func(context.Context, *run) error
	}{
		{domain.StageUploaded, s.upload},
		{domain.StageChunked, s.chunk},
		{domain.StageEmbedded, s.embed},
		{domain.StageIndexed, s.index},
	}

	for _, step := range steps {
		if err := s.runStage(ctx, step.stage, r, step.fn); err != nil {
			r.report.State = domain.StageFailed
			r.report.FailedStage = step.stage
			r.report.Err = err
			r.report.FinishedAt = s.now()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("ingest failed", "document_id", req.DocumentID, "stage", string(step.stage), "error", err)
			return r.report, &domain.StageError{Stage: step.stage, Err: err}
		}
		r.report.State = step.stage
	}

	s.recordMetadata(ctx, r)

	r.report.State = domain.StageComplete
	r.report.FinishedAt = s.now()
	span.SetAttributes(attribute.Int("chunk.count", r.report.ChunkCount))
	logger.Info("ingest complete", "document_id", req.DocumentID, "chunks", r.report.ChunkCount,
		"pruned", r.report.Pruned, "run_id", r.report.RunID)
	return r.report, nil
}

// runStage is the cooperative cancellation checkpoint and tracing wrapper
// around a single stage.
func (s *IngestService) runStage(
	ctx context.Context, stage domain.Stage, r *run, fn func(context.Context, *run) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "ingest."+string(stage))
	defer span.End()

	start := s.now()
	err := fn(ctx, r)
	r.report.Durations[stage] = s.now().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.Debug("stage done", "stage", string(stage), "document_id", r.req.DocumentID,
		"elapsed", r.report.Durations[stage])
	return nil
}

// upload normalises the bytes to text and stores the original in the blob store.
func (s *IngestService) upload(ctx context.Context, r *run) error {
	req := r.req
	if req.DocumentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = s.ports.Normalisers.Detect(req.Filename, req.Data)
	}
	normaliser := s.ports.Normalisers.Get(contentType)
	if normaliser == nil {
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedContent, req.Filename, contentType)
	}
	text, err := normaliser.Normalise(ctx, req.Filename, req.Data)
	if err != nil {
		return fmt.Errorf("normalise: %w", err)
	}

	location, err := s.ports.Blobs.Put(ctx, req.DocumentID, req.Data)
	if err != nil {
		return fmt.Errorf("put blob: %w", storageErr(err))
	}
	r.location = location

	tags := domain.CloneTags(req.Tags)
	if len(tags) == 0 {
		tags = domain.CloneTags(s.defaultTags)
	}

	r.doc = domain.Document{
		ID:          req.DocumentID,
		Filename:    req.Filename,
		ContentType: contentType,
		Content:     text,
		Tags:        tags,
		UploadedAt:  s.now(),
	}
	return nil
}

func (s *IngestService) chunk(ctx context.Context, r *run) error {
	chunks, err := s.ports.Chunker.Process(ctx, &r.doc)
	if err != nil {
		return err
	}
	r.chunks = chunks
	r.report.ChunkCount = len(chunks)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("chunk.count", len(chunks)))
	return nil
}

// embed computes one vector per chunk. Empty documents never reach the service.
func (s *IngestService) embed(ctx context.Context, r *run) error {
	if len(r.chunks) == 0 {
		r.vectors = [][]float32{}
		return nil
	}

	texts := make([]string, len(r.chunks))
	for i := range r.chunks {
		texts[i] = r.chunks[i].Text
	}

	vectors, err := s.ports.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	r.vectors = vectors
	return nil
}

// index upserts all records of the document or none of them, then prunes
// the records an earlier version left behind. A failed prune rolls the
// document back like a failed upsert.
func (s *IngestService) index(ctx context.Context, r *run) error {
	texts := make([]string, len(r.chunks))
	for i := range r.chunks {
		texts[i] = r.chunks[i].Text
	}
	records, err := BuildRecords(r.doc.ID, r.doc.Tags, texts, r.vectors)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		if err := s.ports.Vectors.UpsertRecords(ctx, records); err != nil {
			s.rollback(r.doc.ID)
			return fmt.Errorf("upsert vector records: %w", storageErr(err))
		}
		if s.ports.Keywords != nil {
			if err := s.ports.Keywords.Index(ctx, records); err != nil {
				s.rollback(r.doc.ID)
				return fmt.Errorf("index keyword records: %w", storageErr(err))
			}
		}
	}

	pruned, err := prune(ctx, s.ports.Vectors, r.doc.ID, records)
	if err != nil {
		s.rollback(r.doc.ID)
		return fmt.Errorf("prune vector records: %w", storageErr(err))
	}
	if s.ports.Keywords != nil {
		if _, err := prune(ctx, s.ports.Keywords, r.doc.ID, records); err != nil {
			s.rollback(r.doc.ID)
			return fmt.Errorf("prune keyword records: %w", storageErr(err))
		}
	}
	if pruned > 0 {
		logger.Debug("pruned stale records", "document_id", r.doc.ID, "count", pruned)
	}
	r.report.Pruned = pruned
	return nil
}

// recordLister is the listing and deleting half shared by both index ports.
type recordLister interface {
	RecordIDs(ctx context.Context, documentID string) ([]string, error)
	DeleteRecords(ctx context.Context, ids []string) error
}

// prune deletes the records of documentID that idx holds but records does
// not overwrite. The index, not the metadata store, says what is held.
func prune(ctx context.Context, idx recordLister, documentID string, records []domain.SearchRecord) (int, error) {
	stored, err := idx.RecordIDs(ctx, documentID)
	if err != nil {
		return 0, err
	}
	stale := staleIDs(stored, records)
	if len(stale) == 0 {
		return 0, nil
	}
	if err := idx.DeleteRecords(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// rollback removes whatever a failed index stage may have written.
// It runs on a fresh context so a cancelled run still cleans up.
func (s *IngestService) rollback(documentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.ports.Vectors.DeleteDocument(ctx, documentID); err != nil {
		logger.Error("rollback of vector records failed", "document_id", documentID, "error", err)
	}
	if s.ports.Keywords != nil {
		if err := s.ports.Keywords.DeleteDocument(ctx, documentID); err != nil {
			logger.Error("rollback of keyword records failed", "document_id", documentID, "error", err)
		}
	}
}

// recordMetadata is fire-and-forget bookkeeping; failures never fail the run.
func (s *IngestService) recordMetadata(ctx context.Context, r *run) {
	meta := domain.DocumentMetadata{
		ID:          r.doc.ID,
		Filename:    r.doc.Filename,
		ContentType: r.doc.ContentType,
		Location:    r.location,
		ChunkCount:  len(r.chunks),
		Tags:        domain.CloneTags(r.doc.Tags),
		UploadedAt:  r.doc.UploadedAt,
	}
	if err := s.ports.Metadata.Upsert(ctx, meta); err != nil {
		logger.Warn("metadata upsert failed", "document_id", r.doc.ID, "error", err)
	}
}

// IngestMany ingests independent documents, at most parallel at a time.
// One failing document does not stop the others. The returned error joins
// every run's StageError.
func (s *IngestService) IngestMany(
	ctx context.Context, reqs []domain.IngestRequest, parallel int,
) ([]*domain.RunReport, error) {
	reports := make([]*domain.RunReport, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(max(parallel, 1))
	for i := range reqs {
		g.Go(func() error {
			reports[i], errs[i] = s.Ingest(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// storageErr tags collaborator failures that are not already classified.
func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}

// DocumentIDFromPath derives a document id from a file name.
func DocumentIDFromPath(path string) string {
	base := filepath.Base(path)
	if id := strings.TrimSuffix(base, filepath.Ext(base)); id != "" {
		return id
	}
	return base
}
