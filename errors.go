package pagination

import "errors"

var (
	// ErrMalformedToken is returned by the codec when a token is not a validly
	// encoded cursor (bad base64, broken JSON, missing or mismatched signature).
	ErrMalformedToken = errors.New("malformed cursor token")

	// ErrInvalidStructure is returned by the codec when a token decodes to a
	// document that violates the CursorDescriptor schema.
	ErrInvalidStructure = errors.New("invalid cursor structure")

	// ErrInvalidDescriptor indicates a caller contract violation, e.g. an empty
	// ordering list or a missing getter for an ordering column. It signals
	// misconfiguration and is never absorbed.
	ErrInvalidDescriptor = errors.New("invalid cursor descriptor")

	// ErrDataSource wraps any failure coming from the underlying store. The
	// pagination core does not retry such failures.
	ErrDataSource = errors.New("data source failure")
)
