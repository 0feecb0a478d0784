package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// APIError: a Admin API respondeu fora de 2xx.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode <= 499
}

// EmailTaken detecta a corrida de criação: outro request criou o cliente entre a busca e o POST.
func (e *APIError) EmailTaken() bool {
	return e.StatusCode == 422 && strings.Contains(strings.ToLower(e.Body), "has already been taken")
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
