package validation

import (
	"errors"
	"fmt"

	"github.com/mwellman/weatherbatch/internal/models"
)

// MaxBatchSize is the hard ceiling on locations per call, matching the
// upstream API's practical fan-out limit.
const MaxBatchSize = 10

// ErrNotAnArray is returned when the input is not a location sequence (nil).
var ErrNotAnArray = errors.New("locations should be an array")

// ErrEmptyBatch is returned when the location sequence has no elements.
var ErrEmptyBatch = errors.New("locations should not be empty")

// ErrBatchTooLarge is returned when the sequence exceeds MaxBatchSize elements.
var ErrBatchTooLarge = errors.New("locations should not be more than 10")

// ValidateBatch checks the shape of an incoming location batch. It is a pure
// guard: no transformation, no side effects. Must run before any cache or
// network access.
func ValidateBatch(locations []any) error {
	if locations == nil {
		return ErrNotAnArray
	}
	if len(locations) == 0 {
		return ErrEmptyBatch
	}
	if len(locations) > MaxBatchSize {
		return fmt.Errorf("%w, got %d", ErrBatchTooLarge, len(locations))
	}
	for _, v := range locations {
		if _, err := models.NewLocation(v); err != nil {
			return err
		}
	}
	return nil
}
