// Package errors defines the coded errors surfaced by the RFM pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies the class of a pipeline failure.
type ErrorCode string

const (
	ErrCodeInput            ErrorCode = "INPUT_ERROR"
	ErrCodeFormat           ErrorCode = "FORMAT_ERROR"
	ErrCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeConnection       ErrorCode = "CONNECTION_ERROR"
	ErrCodeInsert           ErrorCode = "INSERT_ERROR"
	ErrCodeExport           ErrorCode = "EXPORT_ERROR"
)

// PipelineError is a structured, fatal pipeline error.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Details string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// InsertError reports a failed row insertion. Committed is the number of
// rows that were durably written before the failure.
type InsertError struct {
	PipelineError
	CustomerID string
	Committed  int
}

func (e *InsertError) Unwrap() error { return &e.PipelineError }

// NewInputError is returned when the input file cannot be read or lacks a required column.
func NewInputError(details string, err error) *PipelineError {
	return &PipelineError{Code: ErrCodeInput, Message: "unreadable input", Details: details, Err: err}
}

// NewFormatError is returned for a value that survived cleaning but cannot be parsed.
func NewFormatError(details string, err error) *PipelineError {
	return &PipelineError{Code: ErrCodeFormat, Message: "malformed value", Details: details, Err: err}
}

// NewInsufficientDataError is returned when bins cannot be formed for a metric.
func NewInsufficientDataError(details string) *PipelineError {
	return &PipelineError{Code: ErrCodeInsufficientData, Message: "not enough data to score", Details: details}
}

// NewConnectionError is returned when the database cannot be reached.
func NewConnectionError(details string, err error) *PipelineError {
	return &PipelineError{Code: ErrCodeConnection, Message: "database connection failed", Details: details, Err: err}
}

// NewExportError wraps a non-insert failure of an export destination.
func NewExportError(destination string, err error) *PipelineError {
	return &PipelineError{Code: ErrCodeExport, Message: "export failed", Details: "destination=" + destination, Err: err}
}

// NewInsertError builds the error for a failed row insertion.
func NewInsertError(customerID string, committed int, err error) *InsertError {
	return &InsertError{
		PipelineError: PipelineError{
			Code:    ErrCodeInsert,
			Message: "row insertion failed",
			Details: fmt.Sprintf("userid=%s committed=%d", customerID, committed),
			Err:     err,
		},
		CustomerID: customerID,
		Committed:  committed,
	}
}

// CodeOf returns the code of the first PipelineError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	var ie *InsertError
	if stderrors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
