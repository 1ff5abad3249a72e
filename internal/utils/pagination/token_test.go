package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(createdAt, "entry-42")
	assert.NotEmpty(t, token, "Token should not be empty")

	decodedCreatedAt, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedCreatedAt), "Created at time should match after decode")
	assert.Equal(t, "entry-42", decodedID)

	// Non-UTC input is normalised
	local := time.Date(2023, 5, 15, 16, 30, 45, 0, time.FixedZone("WAT", 2*3600))
	decodedLocal, _, err := DecodeToken(EncodeToken(local, "x"))
	require.NoError(t, err)
	assert.True(t, local.Equal(decodedLocal))
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode")

	noSeparator := base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z"))
	_, _, err = DecodeToken(noSeparator)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	emptyID := base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|"))
	_, _, err = DecodeToken(emptyID)
	assert.Error(t, err)

	badDate := base64.StdEncoding.EncodeToString([]byte("notadate|entry-1"))
	_, _, err = DecodeToken(badDate)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "created_at parse")
}

func TestAfter(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	assert.True(t, After(t1, "a", t0, "z"), "later time wins regardless of id")
	assert.False(t, After(t0, "z", t1, "a"))
	assert.True(t, After(t0, "b", t0, "a"), "equal time falls back to id")
	assert.False(t, After(t0, "a", t0, "a"), "the cursor row itself is excluded")
}
