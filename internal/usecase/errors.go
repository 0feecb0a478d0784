package usecase

import "errors"

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeLeadNotFound     = "LEAD_NOT_FOUND"
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeTemplateExists   = "TEMPLATE_EXISTS"
	CodeNotInTrash       = "NOT_IN_TRASH"
	CodeSyncInProgress   = "SYNC_IN_PROGRESS"
	CodeNoPhone          = "NO_PHONE"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeUpstreamFailure  = "UPSTREAM_FAILURE"
	CodeMisconfigured    = "MISCONFIGURED"
)

type DomainError struct {
	Code    string
	Message string
	// Details opcional, vai no corpo da resposta (ex: lista de campos inválidos)
	Details any
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}
