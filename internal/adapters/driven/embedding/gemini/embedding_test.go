package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/embedding"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantIs    error
		transient bool
	}{
		{
			name:      "rest rate limit",
			err:       &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"},
			wantIs:    domain.ErrRateLimited,
			transient: true,
		},
		{
			name:      "rest bad request",
			err:       &googleapi.Error{Code: http.StatusBadRequest, Message: "too long"},
			wantIs:    domain.ErrEmbeddingRequestInvalid,
			transient: false,
		},
		{
			name:      "grpc exhausted",
			err:       status.Error(codes.ResourceExhausted, "quota"),
			wantIs:    domain.ErrRateLimited,
			transient: true,
		},
		{
			name:      "grpc invalid argument",
			err:       status.Error(codes.InvalidArgument, "bad"),
			wantIs:    domain.ErrEmbeddingRequestInvalid,
			transient: false,
		},
		{
			name:      "grpc unavailable",
			err:       status.Error(codes.Unavailable, "down"),
			transient: true,
		},
		{
			name:      "unclassified",
			err:       errors.New("connection reset"),
			transient: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, tt.transient, embedding.IsTransient(err))
		})
	}
}
