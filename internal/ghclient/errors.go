// Package ghclient wraps go-github with the rate governor, credential
// modes, and error classification described in spec §4.3/§4.4, grounded
// on the original's modules/github/exceptions.py and lib/github/limit.py.
package ghclient

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v73/github"
)

// Class is the error taxonomy spec §4.4 dispatches retries on.
type Class int

const (
	// ClassFatal is not retried: the caller's request itself is broken.
	ClassFatal Class = iota
	// ClassEmpty means "treat as empty result" (404/400): the caller should
	// continue as if nothing was found, not retry.
	ClassEmpty
	// ClassRateLimited means the primary rate limit was hit; back off
	// briefly and retry, the next Wait holding until the observed reset
	// once the quota is exhausted.
	ClassRateLimited
	// ClassAbuse means the secondary (abuse) limit was hit; reset the
	// client and back off longer.
	ClassAbuse
	// ClassTransient covers timeouts, connection errors, and 500/502/503
	// responses: reset the client and retry after a medium delay.
	ClassTransient
	// ClassBlobTooLarge means the Contents API refused to embed a file's
	// content because it exceeds the API's size ceiling; the caller should
	// fall back to the entry's download_url (spec §4.4).
	ClassBlobTooLarge
)

// Classify maps an error returned by a go-github call (or the underlying
// transport) onto the taxonomy in spec §4.4.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return ClassRateLimited
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return ClassAbuse
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest:
			return ClassEmpty
		case http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
			return ClassTransient
		case http.StatusUnavailableForLegalReasons:
			return ClassFatal
		case http.StatusForbidden:
			if strings.Contains(strings.ToLower(ghErr.Message), "blob is too large") {
				return ClassBlobTooLarge
			}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassTransient
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassTransient
	}

	return ClassFatal
}

// IsEmptyResult reports whether err should be treated as "no data found"
// rather than a failure (spec §4.4: 404/400 responses).
func IsEmptyResult(err error) bool {
	return Classify(err) == ClassEmpty
}
