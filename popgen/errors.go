package popgen

import "errors"

// Configuration errors fail fast at construction or open time, before any
// generation or I/O proceeds. Structural errors indicate misuse of the
// store lifecycle and are fatal to the caller.
var (
	// ErrBadSeed reports a master seed outside (0, SeedMax).
	ErrBadSeed = errors.New("seed out of range")

	// ErrBadModelParams reports invalid plugin construction parameters.
	ErrBadModelParams = errors.New("invalid model parameters")

	// ErrUnknownModel reports a model name absent from the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrStoreReadOnly reports a write against a store in read mode.
	ErrStoreReadOnly = errors.New("population store is read-only")

	// ErrMasterListFrozen reports a second set of a chromosome's master list.
	ErrMasterListFrozen = errors.New("master list already frozen")

	// ErrNoMasterList reports a sample append before the master list is set.
	ErrNoMasterList = errors.New("master list not set for chromosome")

	// ErrIndexOutOfRange reports a genotype index past the master list end.
	ErrIndexOutOfRange = errors.New("genotype index out of master list range")

	// ErrMetadataMismatch reports a store whose genome metadata disagrees
	// with an externally supplied reference.
	ErrMetadataMismatch = errors.New("genome metadata mismatch")
)
