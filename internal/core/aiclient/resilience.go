package aiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/markdave123-py/Lumen/internal/core"
)

// countsAgainstBreaker decides which failures trip an endpoint's breaker.
// Malformed bodies and client errors mean the service is up, so they do not.
func countsAgainstBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if core.IsKind(err, core.ErrUpstreamMalformed) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isServerSideStatus(statusErr.StatusCode)
	}

	// Transport failures, timeouts and anything unclassified count.
	return true
}

// wrapUpstream tags every failure with an upstream error kind.
func wrapUpstream(operation string, err error) error {
	if err == nil {
		return nil
	}
	if core.IsKind(err, core.ErrUpstreamMalformed) || core.IsKind(err, core.ErrUpstreamUnavailable) {
		return err
	}
	return core.WrapError(core.ErrUpstreamUnavailable, operation, err)
}

func isServerSideStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
