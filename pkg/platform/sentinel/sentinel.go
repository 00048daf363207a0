package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (wrapped) so
// callers can branch on the fact without knowing the backend:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: write rejected by an integrity constraint
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
