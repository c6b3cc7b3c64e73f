package services

import (
	"errors"
	"fmt"
)

var (
	ErrVideoNotFound         = errors.New("video not found")
	ErrVideoNotReady         = errors.New("video is not ready for playback")
	ErrAlreadyProcessing     = errors.New("video is already being processed")
	ErrForbidden             = errors.New("not entitled to this resource")
	ErrUploadSessionNotFound = errors.New("upload session not found")
	ErrUploadSessionExpired  = errors.New("upload session expired")
	ErrUploadNotReceived     = errors.New("uploaded file not found in storage")
)

// ValidationError input ไม่ผ่านการตรวจสอบ (ไม่ถึง storage/orchestrator)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExternalServiceError provider ภายนอกล้มเหลว (storage, queue) caller retry ได้
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

// IsValidationError helper สำหรับ handler
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsExternalServiceError helper สำหรับ handler
func IsExternalServiceError(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
