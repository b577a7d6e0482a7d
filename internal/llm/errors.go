package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

// RemoteCallError reports a failed completion call: a transport error, a
// non-2xx status or a body that could not be used.
type RemoteCallError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s completion failed: %s", e.Provider, e.Message)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

func malformed(provider, msg string) *RemoteCallError {
	return &RemoteCallError{Provider: provider, Message: msg}
}

func remoteError(provider string, err error) *RemoteCallError {
	var rce *RemoteCallError
	if errors.As(err, &rce) {
		return rce
	}

	out := &RemoteCallError{Provider: provider, Message: err.Error(), Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var antErr *anthropic.Error
	switch {
	case errors.As(err, &apiErr):
		out.StatusCode = apiErr.HTTPStatusCode
		out.Message = apiErr.Message
	case errors.As(err, &reqErr):
		out.StatusCode = reqErr.HTTPStatusCode
		if reqErr.HTTPStatusCode > 0 {
			out.Message = http.StatusText(reqErr.HTTPStatusCode)
		}
	case errors.As(err, &antErr):
		out.StatusCode = antErr.StatusCode
	}

	return out
}
