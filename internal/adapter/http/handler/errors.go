package handler

import (
	"errors"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

// MapRunError maps a run failure to a stable error code. The most specific
// cause wins, so a classification failure caused by device memory reports
// OUT_OF_MEMORY.
func MapRunError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrDeviceUnavailable):
		code = "DEVICE_UNAVAILABLE"
	case errors.Is(err, service.ErrOutOfMemory):
		code = "OUT_OF_MEMORY"
	case errors.Is(err, service.ErrTextTooLong):
		code = "TEXT_TOO_LONG"
	case errors.Is(err, service.ErrModelLoad):
		code = "MODEL_LOAD_FAILED"
	case errors.Is(err, usecase.ErrInputAccess):
		code = "INPUT_ACCESS"
	case errors.Is(err, usecase.ErrClassification):
		code = "CLASSIFICATION_FAILED"
	case errors.Is(err, usecase.ErrOutputWrite):
		code = "OUTPUT_WRITE"
	case errors.Is(err, usecase.ErrPersist):
		code = "PERSIST_FAILED"
	}

	return &ErrorInfo{Code: code, Message: err.Error()}
}
