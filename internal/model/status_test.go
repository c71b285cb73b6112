package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to DeploymentStatus
		ok       bool
	}{
		{DeploymentPending, DeploymentPublishing, true},
		{DeploymentPending, DeploymentDeployed, false},
		{DeploymentPending, DeploymentFailed, false},
		{DeploymentPublishing, DeploymentDeployed, true},
		{DeploymentPublishing, DeploymentFailed, true},
		{DeploymentPublishing, DeploymentPending, false},
		{DeploymentDeployed, DeploymentFailed, false},
		{DeploymentDeployed, DeploymentPublishing, false},
		{DeploymentFailed, DeploymentDeployed, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestDeploymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, DeploymentPending.IsTerminal())
	assert.False(t, DeploymentPublishing.IsTerminal())
	assert.True(t, DeploymentDeployed.IsTerminal())
	assert.True(t, DeploymentFailed.IsTerminal())
}

func TestDeploymentStatus_JSON(t *testing.T) {
	d := Deployment{ID: "d1", Status: DeploymentPublishing}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"PUBLISHING"`)

	var out Deployment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"d1","status":"DEPLOYED"}`), &out))
	assert.Equal(t, DeploymentDeployed, out.Status)

	err = json.Unmarshal([]byte(`{"status":"DONE"}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown deployment status")
}

func TestDeploymentStatus_ZeroValueInvalid(t *testing.T) {
	var s DeploymentStatus
	_, err := s.MarshalText()
	require.Error(t, err)
	assert.Equal(t, "DeploymentStatus(0)", s.String())
}

func TestPinStatus_CanTransition(t *testing.T) {
	assert.True(t, PinPinning.CanTransition(PinPinned))
	assert.True(t, PinPinning.CanTransition(PinFailed))
	assert.False(t, PinPinning.CanTransition(PinPinning))
	assert.False(t, PinPinned.CanTransition(PinFailed))
	assert.False(t, PinFailed.CanTransition(PinPinned))
}

func TestParsePinStatus(t *testing.T) {
	s, err := ParsePinStatus("PINNED")
	require.NoError(t, err)
	assert.Equal(t, PinPinned, s)

	_, err = ParsePinStatus("pinned")
	require.Error(t, err)
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, ApplicationPatch{}.IsEmpty())
	assert.False(t, ApplicationPatch{KeyName: Ptr("demo")}.IsEmpty())
	assert.True(t, DeploymentPatch{}.IsEmpty())
	assert.False(t, DeploymentPatch{Status: Ptr(DeploymentFailed)}.IsEmpty())
	assert.True(t, DeploymentNodePatch{}.IsEmpty())
}

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "10.0.0.1:9000", Address{Host: "10.0.0.1", Port: 9000}.String())
	assert.Equal(t, "[fd00::1]:9000", Address{Host: "fd00::1", Port: 9000}.String())
}
