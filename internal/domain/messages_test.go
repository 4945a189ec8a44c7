package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInactiveMissionUpdateCarriesAllFields(t *testing.T) {
	body, err := json.Marshal(MissionUpdate(InactiveShield()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"MISSION_UPDATE","isActive":false,"allowedSites":[],"mode":"STRICT"}`, string(body))

	body, err = json.Marshal(MissionUpdate(ShieldState{Mode: ModeBalanced}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"MISSION_UPDATE","isActive":false,"allowedSites":[],"mode":"BALANCED"}`, string(body))
}
