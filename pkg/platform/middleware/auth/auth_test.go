package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "canonical", header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "lowercase scheme", header: "bearer tok", token: "tok", ok: true},
		{name: "extra whitespace", header: "Bearer    tok  ", token: "tok", ok: true},
		{name: "tab separator", header: "BEARER\ttok", token: "tok", ok: true},
		{name: "empty", header: "", ok: false},
		{name: "scheme only", header: "Bearer ", ok: false},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", ok: false},
		{name: "no separator", header: "Bearertok", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestBearerFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	token, ok := BearerFromRequest(req)
	require.True(t, ok)
	assert.Equal(t, "session-token", token)
}

func TestVerifierFunc(t *testing.T) {
	v := VerifierFunc(func(_ context.Context, token string) (*Identity, error) {
		return &Identity{UserID: "u1", Email: token + "@example.com"}, nil
	})
	id, err := v.VerifyToken(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", id.Email)
}
