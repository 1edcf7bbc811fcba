package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/podcast-agent/internal/types"
)

// Classify maps a transport or SDK error onto the error taxonomy.
// Errors that are already typed pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.KindTimeout, "request exceeded its deadline", err)
	case errors.Is(err, context.Canceled):
		return types.NewError(types.KindCanceled, "request canceled", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fromHTTPStatus(gerr.Code, gerr.Message, err)
	}

	var aerr *apierror.APIError
	if errors.As(err, &aerr) {
		if code := aerr.HTTPCode(); code > 0 {
			return fromHTTPStatus(code, aerr.Error(), err)
		}
		if st := aerr.GRPCStatus(); st != nil {
			return fromGRPCCode(st.Code(), st.Message(), err)
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return fromGRPCCode(st.Code(), st.Message(), err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return types.NewError(types.KindTimeout, "request timed out", err)
	}
	if isConnectionError(err) {
		return types.NewError(types.KindTransient, "connection failed", err)
	}

	return types.NewError(types.KindGenerationFailed, "request failed", err)
}

// isConnectionError reports dial, DNS and mid-stream socket failures.
// *url.Error is not enough on its own: it also wraps TLS and scheme errors.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

func fromHTTPStatus(code int, message string, cause error) error {
	if message == "" {
		message = http.StatusText(code)
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return types.NewError(types.KindAuth, message, cause)
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key"):
		// The Generative Language API reports a bad key as INVALID_ARGUMENT.
		return types.NewError(types.KindAuth, message, cause)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return types.NewError(types.KindTimeout, message, cause)
	default:
		return types.NewError(types.KindGenerationFailed, fmt.Sprintf("HTTP %d: %s", code, message), cause)
	}
}

func fromGRPCCode(code codes.Code, message string, cause error) error {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return types.NewError(types.KindAuth, message, cause)
	case codes.DeadlineExceeded:
		return types.NewError(types.KindTimeout, message, cause)
	case codes.Canceled:
		return types.NewError(types.KindCanceled, message, cause)
	case codes.Unavailable:
		return types.NewError(types.KindTransient, message, cause)
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(message), "api key") {
			return types.NewError(types.KindAuth, message, cause)
		}
	}
	return types.NewError(types.KindGenerationFailed, fmt.Sprintf("%s: %s", code, message), cause)
}

var errNoAPIKey = errors.New("no API key configured")

func missingKeyError() error {
	return types.NewError(types.KindAuth, "credentials rejected", errNoAPIKey)
}
