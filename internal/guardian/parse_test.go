package guardian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict("```json\n{\"safe\": false, \"verdict\": \"DISTRACTED\", \"score\": 41.6, \"detectedSites\": [\"x.com\"]}\n```")
	require.NoError(t, err)
	assert.False(t, v.Safe)
	assert.Equal(t, "DISTRACTED", v.Verdict)
	require.NotNil(t, v.Score)
	assert.Equal(t, 42, *v.Score)
	assert.Equal(t, []string{"x.com"}, v.DetectedSites)
}

func TestParseVerdictSurroundingProse(t *testing.T) {
	v, err := parseVerdict(`Here you go: {"safe": true, "message": "keep going"} hope it helps`)
	require.NoError(t, err)
	assert.True(t, v.Safe)
	assert.Equal(t, "keep going", v.Message)
}

func TestParseVerdictErrors(t *testing.T) {
	_, err := parseVerdict("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = parseVerdict(`{"safe": "maybe"`+"}")
	assert.Error(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	img, mime, err := DecodeDataURL("data:image/webp;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), img)
	assert.Equal(t, "image/webp", mime)

	img, mime, err = DecodeDataURL("aGk=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), img)
	assert.Equal(t, "image/jpeg", mime)

	_, _, err = DecodeDataURL("data:image/png;base64")
	assert.Error(t, err)
}
