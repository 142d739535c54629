package ghclient

import (
	"net/http"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"rate limit", &github.RateLimitError{}, ClassRateLimited},
		{"abuse limit", &github.AbuseRateLimitError{}, ClassAbuse},
		{"not found", &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusNotFound}}, ClassEmpty},
		{"bad request", &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusBadRequest}}, ClassEmpty},
		{"service unavailable", &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}, ClassTransient},
		{"bad gateway", &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusBadGateway}}, ClassTransient},
		{"legal reasons", &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusUnavailableForLegalReasons}}, ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsEmptyResult(t *testing.T) {
	require.True(t, IsEmptyResult(&github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusNotFound}}))
	require.False(t, IsEmptyResult(&github.RateLimitError{}))
}
