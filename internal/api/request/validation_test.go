package request

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireID_Valid(t *testing.T) {
	result, err := RequireID("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", result)
}

func TestRequireID_Empty(t *testing.T) {
	_, err := RequireID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required ID")
}

func decode(t *testing.T, body string, v any) error {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)
	return Decode(r, v)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var payload HeartbeatNode
	err := decode(t, `{not valid json}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_RegisterNode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"minimal", `{"id":"n1","port":8000}`, false},
		{"with ip", `{"id":"node-a.eu:1","ip":"10.0.0.5","port":8000}`, false},
		{"missing id", `{"port":8000}`, true},
		{"bad id", `{"id":"n 1","port":8000}`, true},
		{"bad ip", `{"id":"n1","ip":"not-an-ip","port":8000}`, true},
		{"port zero", `{"id":"n1","port":0}`, true},
		{"port too high", `{"id":"n1","port":70000}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload RegisterNode
			err := decode(t, tt.body, &payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "validation error")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDecode_Deploy(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"by name", `{"team_id":"550e8400-e29b-41d4-a716-446655440000","name":"demo","content":"hello"}`, false},
		{"by app id", `{"app_id":"550e8400-e29b-41d4-a716-446655440000","content":"hello"}`, false},
		{"no content", `{"app_id":"550e8400-e29b-41d4-a716-446655440000"}`, true},
		{"name without team", `{"name":"demo","content":"hello"}`, true},
		{"bad name", `{"team_id":"550e8400-e29b-41d4-a716-446655440000","name":"Demo App","content":"x"}`, true},
		{"bad app id", `{"app_id":"42","content":"x"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload Deploy
			err := decode(t, tt.body, &payload)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSlugValidation(t *testing.T) {
	for _, slug := range []string{"my-site", "test123", "a", "abc-def-123", "z0"} {
		assert.True(t, nameRegex.MatchString(slug), "expected slug %q to be valid", slug)
	}
	for _, slug := range []string{"My Site", "test@123", "", strings.Repeat("a", 64), "1starts-digit", "-leading-dash"} {
		assert.False(t, nameRegex.MatchString(slug), "expected slug %q to be invalid", slug)
	}
}
