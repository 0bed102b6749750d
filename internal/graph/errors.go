package graph

import (
	"errors"
	"fmt"
)

// ErrIndexNotBuilt is returned by vector search when no index has been
// built or loaded yet.
var ErrIndexNotBuilt = errors.New("vector index not built")

// NotFoundError reports that an entity does not exist in the store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found", e.ID)
}

// UnresolvedReferenceError reports a relationship whose source or target
// entity does not exist. Field names the missing endpoint.
type UnresolvedReferenceError struct {
	SourceID string
	TargetID string
	Type     string
	Missing  string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("relationship %s-[%s]->%s references missing entity %q",
		e.SourceID, e.Type, e.TargetID, e.Missing)
}

// ConstraintViolationError reports a write rejected by a declared
// uniqueness constraint.
type ConstraintViolationError struct {
	Label    string
	Property string
	Detail   string
}

func (e *ConstraintViolationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("constraint violation on %s.%s: %s", e.Label, e.Property, e.Detail)
	}
	return fmt.Sprintf("constraint violation on %s.%s", e.Label, e.Property)
}

// ConnectionError reports that the backing store is unreachable.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QuerySyntaxError reports a malformed structured query, rejected before
// or during parsing.
type QuerySyntaxError struct {
	Query  string
	Detail string
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("query syntax error: %s", e.Detail)
}

// QueryExecutionError reports a query that parsed but failed to run.
type QueryExecutionError struct {
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// QueryTimeoutError reports a query that exceeded its deadline. The
// underlying error wraps context.DeadlineExceeded.
type QueryTimeoutError struct {
	Query string
	Err   error
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query timed out: %v", e.Err)
}

func (e *QueryTimeoutError) Unwrap() error { return e.Err }

// TranslationError reports that natural-language translation failed after
// all retry attempts. It is distinct from execution errors so callers can
// tell a bad translation from a bad graph.
type TranslationError struct {
	Question string
	Attempts int
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// IndexCorruptError reports that a persisted vector index could not be
// loaded or does not match the current embedder.
type IndexCorruptError struct {
	Path   string
	Detail string
}

func (e *IndexCorruptError) Error() string {
	return fmt.Sprintf("vector index %s is unusable: %s", e.Path, e.Detail)
}
