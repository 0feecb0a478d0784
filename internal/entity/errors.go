package entity

import (
	"errors"
	"fmt"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateExists   = errors.New("template for this course already exists")
)

// StoreError: camada de persistência indisponível ou documento inexistente.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
