package api

import (
	"fmt"
)

// InvalidArgument is returned when an entry handed to a collector is malformed,
// e.g. its internal key can't be parsed.
type InvalidArgument struct {
	Msg string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Msg)
}

func (e *InvalidArgument) Is(err error) bool {
	_, ok := err.(*InvalidArgument)
	return ok
}

// ExtractorError wraps an error returned by a TtlExtractor. The original error
// is available via errors.Is and errors.As.
type ExtractorError struct {
	Extractor string
	Err       error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("ttl extractor %s: %v", e.Extractor, e.Err)
}

func (e *ExtractorError) Is(err error) bool {
	_, ok := err.(*ExtractorError)
	return ok
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}
