package models

import (
	"errors"
	"fmt"
)

// Input validation errors. These are surfaced as 4xx responses and never retried.
var (
	ErrEmptyInput        = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("file format not supported, please upload a valid CSV or Excel file")
	ErrEmptyDataset      = errors.New("dataset is empty")
	ErrNoData            = errors.New("no data to process found")
	ErrEmptyQuestion     = errors.New("question cannot be empty")
)

// ErrMissingCredential is returned when the completion API key is not configured.
var ErrMissingCredential = errors.New("completion API key is not defined")

// UpstreamError wraps a non-200 response from the completion API after the
// last attempt.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion API error: status %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps the last transport or protocol failure once all
// attempts are used up.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion API error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
