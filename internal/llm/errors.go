package llm

import (
	"errors"
	"fmt"
	"time"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
)

// APIError represents a non-2xx HTTP response from a model backend.
type APIError struct {
	StatusCode int
	Body       string // at most 512 bytes, valid UTF-8
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model request failed with HTTP %d: %s", e.StatusCode, e.Body)
}

// TimeoutError is returned when a model call exceeds its deadline.
type TimeoutError struct {
	Model       string
	Timeout     time.Duration
	PromptChars int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model request timed out (model=%s, timeout_s=%g, prompt_chars=%d); "+
		"lower --llm-max-chars or --llm-top-k, or raise --llm-timeout-s",
		e.Model, e.Timeout.Seconds(), e.PromptChars)
}

// ResponseKind classifies an unusable model response.
type ResponseKind string

const (
	KindInvalidJSON ResponseKind = "InvalidJSONError"
	KindNotObject   ResponseKind = "NotObjectError"
	KindEchoedInput ResponseKind = "EchoedInputError"
)

// ResponseError is returned when a model answered but the answer cannot be
// used.
type ResponseError struct {
	Kind   ResponseKind
	Detail string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// errorType names err for the errors[0].type field of a fallback payload.
func errorType(err error) string {
	var te *TimeoutError
	var ae *APIError
	var re *ResponseError
	var ve *contract.ValidationError
	switch {
	case errors.As(err, &te):
		return "TimeoutError"
	case errors.As(err, &ae):
		return "HTTPError"
	case errors.As(err, &re):
		return string(re.Kind)
	case errors.As(err, &ve):
		return "SchemaValidationError"
	}
	return "GenerationError"
}
