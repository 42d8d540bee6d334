package merr

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeValidationFailed  = "METIS_VALIDATION_FAILED"
	codeContextCanceled   = "METIS_CONTEXT_CANCELED"
	codeContextTimeout    = "METIS_CONTEXT_TIMEOUT"
	codeContextError      = "METIS_CONTEXT_ERROR"
	codeWorkspaceFailed   = "METIS_WORKSPACE_OPERATION_FAILED"
	codeSyncFailed        = "METIS_SYNC_OPERATION_FAILED"
	codeTransportFailed   = "METIS_TRANSPORT_OPERATION_FAILED"
	codeProjectionFailed  = "METIS_PROJECTION_OPERATION_FAILED"
)

// Wrap attaches a single layer of context to err at the boundary of the
// operation named by op, using goerrors' category/code taxonomy. Already
// wrapped errors pass through unchanged so repeated boundary crossings
// don't stack redundant context.
func Wrap(err error, category goerrors.Category, op, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, op).WithTextCode(code)
}

// WrapValidation wraps a validation-kind failure at an operation boundary.
func WrapValidation(err error, op string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, op).WithTextCode(codeValidationFailed)
}

// WrapWorkspace wraps a workspace-service failure at an operation boundary.
func WrapWorkspace(err error, op string) error {
	return Wrap(err, goerrors.CategoryCommand, op, codeWorkspaceFailed)
}

// WrapSync wraps a sync-engine failure at an operation boundary.
func WrapSync(err error, op string) error {
	return Wrap(err, goerrors.CategoryCommand, op, codeSyncFailed)
}

// WrapTransport wraps a transport-cycle failure at an operation boundary.
func WrapTransport(err error, op string) error {
	return Wrap(err, goerrors.CategoryCommand, op, codeTransportFailed)
}

// WrapProjection wraps a projection-cache failure at an operation boundary.
func WrapProjection(err error, op string) error {
	return Wrap(err, goerrors.CategoryCommand, op, codeProjectionFailed)
}

// WrapContext normalises context cancellation and deadline errors.
func WrapContext(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch err {
	case context.Canceled:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "operation cancelled").WithTextCode(codeContextCanceled)
	case context.DeadlineExceeded:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "operation deadline exceeded").WithTextCode(codeContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "context error").WithTextCode(codeContextError)
	}
}
