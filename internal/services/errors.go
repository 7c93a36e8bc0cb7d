package services

import (
	"errors"
	"fmt"
)

var (
	ErrNoArticles       = errors.New("no stored articles for date")
	ErrNoJSONObject     = errors.New("model response contains no JSON object")
	ErrTemplateNotFound = errors.New("email template not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

// DecodeError is returned when the model response could not be decoded as JSON.
// Raw holds the cleaned text that was handed to the decoder.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode model response as JSON: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SummaryError names the document whose summary failed.
type SummaryError struct {
	Filename string
	Err      error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("failed to summarize %s: %v", e.Filename, e.Err)
}

func (e *SummaryError) Unwrap() error { return e.Err }

// ExtractionError names the document whose text could not be extracted.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
