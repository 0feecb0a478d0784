package relay

import (
	"errors"
	"fmt"
)

// RejectionError: o relay respondeu e recusou os dados (validação upstream).
type RejectionError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay rejeitou (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("relay rejeitou (status %d)", e.StatusCode)
}

// Detail é o que vai para shopify_error: o corpo estruturado quando existe.
func (e *RejectionError) Detail() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Error()
}

// TransportError: a requisição não obteve resposta válida (timeout, rede, corpo ilegível, 5xx).
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("falha de transporte no relay (status %d): %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("falha de transporte no relay: %v", e.Err)
	default:
		return fmt.Sprintf("falha de transporte no relay (status %d)", e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail inclui o texto cru quando o corpo não era JSON.
func (e *TransportError) Detail() string {
	if e.Body != "" {
		return e.Error() + ": " + e.Body
	}
	return e.Error()
}

func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
