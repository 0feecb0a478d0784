package shopify

import (
	"fmt"
	"time"
)

// Customer como a Admin API devolve. Tags vem como string separada por vírgula.
type Customer struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
	Tags      string  `json:"tags"`
	Note      *string `json:"note"`
}

func (c Customer) IDString() string {
	return fmt.Sprintf("%d", c.ID)
}

type CreateCustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Tags      string
	Note      string
	// Momento do consentimento de marketing
	ConsentAt time.Time
}

type UpdateCustomerInput struct {
	ID   int64
	Tags string
	Note string
}

// --- payloads internos ---

type customerEnvelope struct {
	Customer Customer `json:"customer"`
}

type searchResponse struct {
	Customers []Customer `json:"customers"`
}

type createCustomerRequest struct {
	Customer createCustomerBody `json:"customer"`
}

type createCustomerBody struct {
	FirstName                 string `json:"first_name"`
	LastName                  string `json:"last_name"`
	Email                     string `json:"email"`
	Phone                     string `json:"phone,omitempty"`
	Tags                      string `json:"tags"`
	Note                      string `json:"note"`
	VerifiedEmail             bool   `json:"verified_email"`
	AcceptsMarketing          bool   `json:"accepts_marketing"`
	AcceptsMarketingUpdatedAt string `json:"accepts_marketing_updated_at"`
}

type updateCustomerRequest struct {
	Customer updateCustomerBody `json:"customer"`
}

type updateCustomerBody struct {
	ID   int64  `json:"id"`
	Tags string `json:"tags"`
	Note string `json:"note"`
}
