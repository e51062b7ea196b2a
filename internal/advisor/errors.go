package advisor

import "fmt"

// ParseError reports that a model produced output that could not be decoded
// into the stage's result type. The raw response is preserved so callers can
// show it or retry; the pipeline never silently substitutes default values
// for unparseable output.
type ParseError struct {
	Agent       string
	RawResponse string
	Err         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: could not parse model response: %v", e.Agent, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
