package catalog

import "errors"

var (
	ErrMissingChallenge = errors.New("challenge id is required")
	ErrMetadataKey      = errors.New("metadata key is not an OCI annotation")
)
