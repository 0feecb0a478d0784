package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxResponseBody = 1 << 20
)

var errMissingCustomerID = errors.New("resposta sem customer id")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upsert envia o lead normalizado para o relay. Erros são sempre *RejectionError ou *TransportError.
func (c *Client) Upsert(ctx context.Context, input CustomerPayload) (*UpsertResult, error) {
	url := fmt.Sprintf("%s/customers", c.baseURL)

	jsonBody, err := json.Marshal(input)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("erro ao marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("erro ao ler resposta: %w", err)}
	}

	// Corpo não-JSON nunca vira pânico: é falha de transporte com o texto cru.
	if !json.Valid(body) {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        errors.New("corpo de resposta não é JSON"),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var out upsertResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
		}
		if !out.Success || out.Customer == nil || out.Customer.ID == "" {
			return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body), Err: errMissingCustomerID}
		}
		return &UpsertResult{RemoteID: string(out.Customer.ID), Created: out.Created}, nil
	}

	if isRejectionStatus(resp.StatusCode) {
		var errPayload errorResponse
		_ = json.Unmarshal(body, &errPayload)
		return nil, &RejectionError{
			StatusCode: resp.StatusCode,
			Message:    errPayload.Error,
			Details:    string(body),
		}
	}

	return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
}

// 408 e 429 são transitórios; o resto dos 4xx é recusa de dados.
func isRejectionStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code <= 499
}
