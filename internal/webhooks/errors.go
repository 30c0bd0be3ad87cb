package webhooks

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorInvalidSignature = "INVALID_SIGNATURE"
	ErrorMalformed        = "MALFORMED_NOTIFICATION"
	ErrorProcessing       = "PROCESSING_FAILURE"
)

// Messages stay generic so a rejection does not reveal which check failed.

func invalidSignature() error {
	return goerrors.New("unauthorized", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorInvalidSignature)
}

func malformed(source error) error {
	if source == nil {
		return goerrors.New("malformed notification", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrorMalformed)
	}
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "malformed notification").
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorMalformed)
}

func processingFailure(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "notification processing failed").
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorProcessing)
}

// TextCode returns the go-errors text code carried by err, or "" for plain errors.
func TextCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}
