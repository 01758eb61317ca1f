// Package errors defines FeatherBox's typed error taxonomy (spec §7). Every
// kind is a *FeatherBoxError distinguished by its Code, built by one
// constructor per kind; Unwrap exposes the wrapped cause.
package errors

import "fmt"

// Code identifies a well-known FeatherBox error kind so callers can dispatch
// on retryability without type-switching on every concrete struct.
type Code string

const (
	CodeConfigInvalid        Code = "CONFIG_INVALID"
	CodeUnknownReference     Code = "UNKNOWN_REFERENCE"
	CodeCyclicDependency     Code = "CYCLIC_DEPENDENCY"
	CodeStoreError           Code = "STORE_ERROR"
	CodeNoGraph              Code = "NO_GRAPH"
	CodeConnectionUnavailable Code = "CONNECTION_UNAVAILABLE"
	CodeCatalogWriteError    Code = "CATALOG_WRITE_ERROR"
	CodeSourceObjectMissing  Code = "SOURCE_OBJECT_MISSING"
	CodeSchemaMismatch       Code = "SCHEMA_MISMATCH"
	CodeSqlExecutionError    Code = "SQL_EXECUTION_ERROR"
	CodeUpstreamFailed       Code = "UPSTREAM_FAILED"
	CodeCancelled            Code = "CANCELLED"
	CodeDeadlineExceeded     Code = "DEADLINE_EXCEEDED"
)

// Retryable reports whether actions failing with this code should be retried
// per the policy in spec §4.6.
func (c Code) Retryable() bool {
	switch c {
	case CodeConnectionUnavailable, CodeCatalogWriteError:
		return true
	default:
		return false
	}
}

// FeatherBoxError is the common shape every constructor below returns.
type FeatherBoxError struct {
	Code    Code
	Node    string
	Message string
	Err     error
}

func (e *FeatherBoxError) Error() string {
	if e == nil {
		return ""
	}
	prefix := string(e.Code)
	if e.Node != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *FeatherBoxError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the action that produced this error should be
// retried per spec §4.6's retry policy.
func (e *FeatherBoxError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Code.Retryable()
}

func newErr(code Code, node, message string, err error) *FeatherBoxError {
	return &FeatherBoxError{Code: code, Node: node, Message: message, Err: err}
}

// NewConfigInvalid reports a structurally invalid project/adapter/model config.
func NewConfigInvalid(message string, err error) error {
	return newErr(CodeConfigInvalid, "", message, err)
}

// NewUnknownReference reports a model SQL statement referencing a name that
// resolves to no node in the config (spec §4.3 step 3).
func NewUnknownReference(model, reference string) error {
	return newErr(CodeUnknownReference, model, fmt.Sprintf("unknown reference %q", reference), nil)
}

// NewCyclicDependency reports a dependency cycle, carrying the full cycle
// path for diagnostics (spec §4.3 step 4).
func NewCyclicDependency(path []string) error {
	return newErr(CodeCyclicDependency, "", fmt.Sprintf("cycle: %v", path), nil)
}

// NewStoreError wraps a metadata store failure (spec §4.1 failure semantics).
func NewStoreError(op string, err error) error {
	return newErr(CodeStoreError, "", fmt.Sprintf("catalog store operation %q failed", op), err)
}

// NewNoGraph reports that run() was invoked before any migrate() committed a graph.
func NewNoGraph() error {
	return newErr(CodeNoGraph, "", "no committed graph exists; run migrate first", nil)
}

// NewConnectionUnavailable reports a retryable connection failure for an action.
func NewConnectionUnavailable(node string, err error) error {
	return newErr(CodeConnectionUnavailable, node, "connection unavailable", err)
}

// NewCatalogWriteError reports a retryable failure writing to the lake catalog.
func NewCatalogWriteError(node string, err error) error {
	return newErr(CodeCatalogWriteError, node, "catalog write failed", err)
}

// NewSourceObjectMissing reports a non-retryable missing source file/object.
func NewSourceObjectMissing(node, path string) error {
	return newErr(CodeSourceObjectMissing, node, fmt.Sprintf("source object missing: %s", path), nil)
}

// NewSchemaMismatch reports a non-retryable schema mismatch between declared
// columns and observed data.
func NewSchemaMismatch(node, detail string) error {
	return newErr(CodeSchemaMismatch, node, fmt.Sprintf("schema mismatch: %s", detail), nil)
}

// NewSqlExecutionError reports a non-retryable SQL execution failure.
func NewSqlExecutionError(node string, err error) error {
	return newErr(CodeSqlExecutionError, node, "sql execution failed", err)
}

// NewUpstreamFailed marks an action skipped because a direct dependency
// failed or was itself skipped (spec §4.6 dependency skip policy).
func NewUpstreamFailed(node, upstream string) error {
	return newErr(CodeUpstreamFailed, node, fmt.Sprintf("upstream node %q did not complete", upstream), nil)
}

// NewCancelled marks an action failed due to pipeline cancellation.
func NewCancelled(node string) error {
	return newErr(CodeCancelled, node, "cancelled", nil)
}

// NewDeadlineExceeded marks an action failed due to its deadline expiring.
func NewDeadlineExceeded(node string) error {
	return newErr(CodeDeadlineExceeded, node, "deadline exceeded", nil)
}
