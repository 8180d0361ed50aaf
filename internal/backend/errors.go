package backend

import "fmt"

// TransportError wraps a network-level failure talking to the
// transcription service: the request never produced a usable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transcription backend %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-success response from the transcription
// service: the request arrived but the backend rejected it.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("transcription backend %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}
