package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIVersion = "2024-01"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient monta https://{store}/admin/api/{version}. Um store com esquema (http://...) é usado como está.
func NewClient(store, token, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	host := strings.TrimRight(strings.TrimSpace(store), "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Client{
		baseURL: fmt.Sprintf("%s/admin/api/%s", host, apiVersion),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchByEmail devolve nil, nil quando nenhum cliente tem o email.
// A busca do Shopify é tokenizada e traz quase-matches, então só vale email igual (sem caixa).
func (c *Client) SearchByEmail(ctx context.Context, email string) (*Customer, error) {
	endpoint := fmt.Sprintf("%s/customers/search.json?query=%s", c.baseURL, url.QueryEscape("email:"+email))

	var out searchResponse
	if err := c.do(ctx, "search", http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	want := strings.TrimSpace(email)
	for i := range out.Customers {
		if strings.EqualFold(strings.TrimSpace(out.Customers[i].Email), want) {
			return &out.Customers[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error) {
	endpoint := fmt.Sprintf("%s/customers.json", c.baseURL)

	consentAt := input.ConsentAt
	if consentAt.IsZero() {
		consentAt = time.Now()
	}

	payload := createCustomerRequest{Customer: createCustomerBody{
		FirstName:                 input.FirstName,
		LastName:                  input.LastName,
		Email:                     input.Email,
		Phone:                     input.Phone,
		Tags:                      input.Tags,
		Note:                      input.Note,
		VerifiedEmail:             true,
		AcceptsMarketing:          true,
		AcceptsMarketingUpdatedAt: consentAt.UTC().Format(time.RFC3339),
	}}

	var out customerEnvelope
	if err := c.do(ctx, "create", http.MethodPost, endpoint, payload, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, input UpdateCustomerInput) (*Customer, error) {
	endpoint := fmt.Sprintf("%s/customers/%d.json", c.baseURL, input.ID)

	payload := updateCustomerRequest{Customer: updateCustomerBody{
		ID:   input.ID,
		Tags: input.Tags,
		Note: input.Note,
	}}

	var out customerEnvelope
	if err := c.do(ctx, "update", http.MethodPut, endpoint, payload, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("erro ao marshal %s: %w", op, err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro request shopify %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Operation: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("erro decode shopify %s: %w", op, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)
}
