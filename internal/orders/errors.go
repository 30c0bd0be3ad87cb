package orders

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorOrderNotFound  = "ORDER_NOT_FOUND"
	ErrorUnknownPackage = "UNKNOWN_PACKAGE"
	ErrorGateway        = "GATEWAY_FAILURE"
	ErrorInternal       = "INTERNAL_ERROR"
)

func orderError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func orderWrapError(source error, category goerrors.Category, message string, code int, textCode string) error {
	if source == nil {
		return orderError(message, category, code, textCode, nil)
	}
	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
}

// NotFound reports that no order exists for id.
func NotFound(id string) error {
	return orderError("order not found", goerrors.CategoryNotFound, http.StatusNotFound, ErrorOrderNotFound, map[string]any{"orderId": id})
}

func unknownPackage(packageID int) error {
	return orderError("unknown package", goerrors.CategoryBadInput, http.StatusBadRequest, ErrorUnknownPackage, map[string]any{"packageId": packageID})
}

func gatewayFailure(source error) error {
	return orderWrapError(source, goerrors.CategoryExternal, "failed to create order", http.StatusBadGateway, ErrorGateway)
}

func internalError(source error, message string) error {
	return orderWrapError(source, goerrors.CategoryInternal, message, http.StatusInternalServerError, ErrorInternal)
}

// TextCode returns the go-errors text code carried by err, or "" for plain errors.
func TextCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}
