package gemini

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassifyAPIError(t *testing.T) {
	cases := []struct {
		code int
		msg  string
		want CredentialKind
	}{
		{400, "API key not valid. Please pass a valid API key.", CredentialInvalid},
		{401, "", CredentialInvalid},
		{403, "Permission denied", CredentialPermission},
		{404, "models/x is not found", CredentialPermission},
		{429, "Resource exhausted", CredentialQuota},
		{503, "Overloaded", CredentialNetwork},
		{418, "teapot", CredentialUnknown},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := fmt.Errorf("generate: %w", genai.APIError{Code: tc.code, Message: tc.msg})
			got := classifyError(err)
			assert.Equal(t, tc.want, got.Kind)
			assert.NotEmpty(t, got.Message)
			assert.ErrorIs(t, got, err)
		})
	}
}

func TestClassifyErrorKindsReadDifferently(t *testing.T) {
	perm := classifyError(genai.APIError{Code: 403})
	quota := classifyError(genai.APIError{Code: 429})
	assert.NotEqual(t, perm.Message, quota.Message)
}

func TestClassifyErrorByMessage(t *testing.T) {
	cases := map[string]CredentialKind{
		"API_KEY_INVALID":                        CredentialInvalid,
		"rpc error: permission denied":           CredentialPermission,
		"quota exceeded":                         CredentialQuota,
		"dial tcp: lookup x: no such host":       CredentialNetwork,
		"something unexpected happened upstream": CredentialUnknown,
	}
	for msg, want := range cases {
		got := classifyError(errors.New(msg))
		assert.Equal(t, want, got.Kind, msg)
	}
}

func TestClassifyUnknownKeepsServerMessage(t *testing.T) {
	got := classifyError(genai.APIError{Code: 409, Message: "Conflict on key"})
	assert.Equal(t, "Conflict on key", got.Message)
}
