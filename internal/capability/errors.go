package capability

import "errors"

// Domain errors for capability schema operations.
var (
	// ErrUnknownModel is returned when a model ID is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidLineage is returned when a model's parent chain contains a
	// cycle or references a model that is not registered.
	ErrInvalidLineage = errors.New("invalid model lineage")

	// ErrUnknownEnum is returned when a field references an enum table that
	// is not visible at the layer defining the field.
	ErrUnknownEnum = errors.New("unknown enum table")

	// ErrInvalidModel is returned when a model record fails validation.
	ErrInvalidModel = errors.New("invalid model")
)
