package outcome

import (
	"errors"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
)

// Outcome classifies how a search ended. Used as a metrics label.
type Outcome string

// Search outcomes.
const (
	OK               Outcome = "ok"
	InvalidRequest   Outcome = "invalid_request"
	EmbeddingFailure Outcome = "embedding_failure"
	StoreFailure     Outcome = "store_failure"
	Error            Outcome = "error"
)

// Of maps a search error onto its outcome. A nil error is OK.
func Of(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, domain.ErrInvalidRequest):
		return InvalidRequest
	case errors.Is(err, domain.ErrEmbeddingServiceFailure):
		return EmbeddingFailure
	case errors.Is(err, domain.ErrStoreQueryFailure):
		return StoreFailure
	default:
		return Error
	}
}
