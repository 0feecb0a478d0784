package relay

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CustomerPayload é o corpo de POST /customers. Email é a chave de idempotência no relay.
type CustomerPayload struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Phone string   `json:"phone"`
	Tags  []string `json:"tags"`
	Note  string   `json:"note"`
}

type UpsertResult struct {
	RemoteID string
	Created  bool
}

// --- RESPONSE: o que o relay devolve ---
type upsertResponse struct {
	Success  bool   `json:"success"`
	Created  bool   `json:"created"`
	Error    string `json:"error"`
	Customer *struct {
		ID flexibleID `json:"id"`
	} `json:"customer"`
}

type errorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// flexibleID aceita o id como número (Shopify) ou string.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
