package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameType(t *testing.T) {
	assert.Equal(t, FrameTypeI, ParseFrameType("I"))
	assert.Equal(t, FrameTypeP, ParseFrameType("p"))
	assert.Equal(t, FrameTypeB, ParseFrameType(" B "))
	assert.Equal(t, FrameTypeOther, ParseFrameType("?"))
	assert.Equal(t, FrameTypeOther, ParseFrameType(""))
	assert.True(t, FrameTypeI.IsKeyframe())
	assert.False(t, FrameTypeB.IsKeyframe())
}

func TestFrameRecordJSON(t *testing.T) {
	var frames []FrameRecord
	err := json.Unmarshal([]byte(`[{"timestamp":0,"type":"I","size":1200},{"timestamp":0.04,"type":"S","size":300}]`), &frames)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, FrameTypeI, frames[0].Type)
	assert.Equal(t, FrameTypeOther, frames[1].Type)

	out, err := json.Marshal(frames[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":0,"type":"I","size":1200}`, string(out))
}

func TestValidateFrameOrder(t *testing.T) {
	ok := []FrameRecord{{Timestamp: 0}, {Timestamp: 0}, {Timestamp: 0.04}}
	idx, err := ValidateFrameOrder(ok)
	assert.NoError(t, err)
	assert.Equal(t, -1, idx)

	bad := []FrameRecord{{Timestamp: 0}, {Timestamp: 0.08}, {Timestamp: 0.04}}
	idx, err = ValidateFrameOrder(bad)
	assert.Error(t, err)
	assert.Equal(t, 2, idx)

	idx, err = ValidateFrameOrder(nil)
	assert.NoError(t, err)
	assert.Equal(t, -1, idx)
}
