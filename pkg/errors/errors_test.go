package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeRateLimit, 429, "slow down: %s", "actor run")
	assert.Equal(t, "rate_limit error (code 429): slow down: actor run", err.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))

	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeStorage))
	assert.False(t, IsRetryable(ErrorTypeUnknown))
}

func TestIsRetryableStatusCode(t *testing.T) {
	for _, code := range []int{0, 429, 500, 502, 503, 504, 599} {
		assert.True(t, IsRetryableStatusCode(code), "code %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, IsRetryableStatusCode(code), "code %d", code)
	}
}

func TestTypeForStatusCode(t *testing.T) {
	assert.Equal(t, ErrorTypeNetwork, TypeForStatusCode(0))
	assert.Equal(t, ErrorTypeAuth, TypeForStatusCode(401))
	assert.Equal(t, ErrorTypeAuth, TypeForStatusCode(403))
	assert.Equal(t, ErrorTypeNotFound, TypeForStatusCode(404))
	assert.Equal(t, ErrorTypeRateLimit, TypeForStatusCode(429))
	assert.Equal(t, ErrorTypeServerError, TypeForStatusCode(500))
	assert.Equal(t, ErrorTypeServerError, TypeForStatusCode(503))
	assert.Equal(t, ErrorTypeUnknown, TypeForStatusCode(418))
}
