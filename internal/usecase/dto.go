package usecase

import "time"

// UpsertCustomerInput é o corpo de POST /customers no relay.
type UpsertCustomerInput struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Phone string   `json:"phone"`
	Tags  []string `json:"tags"`
	Note  string   `json:"note"`
}

type CustomerOutput struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Tags  string `json:"tags"`
	Note  string `json:"note"`
}

type UpsertCustomerOutput struct {
	Success  bool           `json:"success"`
	Created  bool           `json:"created"`
	Customer CustomerOutput `json:"customer"`
}

// CaptureLeadInput é o formulário público do site.
type CaptureLeadInput struct {
	Name      string   `json:"nombre"`
	Email     string   `json:"email"`
	Phone     string   `json:"telefono"`
	Company   string   `json:"empresa"`
	Interests []string `json:"intereses"`
	Message   string   `json:"mensaje"`
	Origin    string   `json:"origen"`
}

type SaveTemplateInput struct {
	ID             string `json:"id"`
	CourseName     string `json:"courseName"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentLink string `json:"pdfLink"`
	AutoSend       bool   `json:"autoSend"`
}

// LeadFilter espelha os filtros do painel.
type LeadFilter struct {
	Search string
	Course string
	// all, today, week, month
	Date  string
	Trash bool
	Now   time.Time
}
