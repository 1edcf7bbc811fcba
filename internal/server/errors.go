package server

import (
	"net/http"

	"github.com/jonathan/podcast-agent/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch types.KindOf(err) {
	case types.KindInvalidRequest:
		return http.StatusBadRequest
	case types.KindAuth:
		return http.StatusBadGateway
	case types.KindTimeout:
		return http.StatusGatewayTimeout
	case types.KindCanceled:
		// nginx's "client closed request"
		return 499
	default:
		return http.StatusInternalServerError
	}
}
