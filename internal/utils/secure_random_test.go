package utils

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureRandomString(t *testing.T) {
	s, err := GenerateSecureRandomString(4)
	require.NoError(t, err)
	assert.Len(t, s, 8)

	_, err = GenerateSecureRandomString(0)
	assert.Error(t, err)
}

func TestTransactionIDGenerator(t *testing.T) {
	fixed := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	gen := &TransactionIDGenerator{Now: func() time.Time { return fixed }}

	id, err := gen.Generate()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-Z]+-[0-9A-F]{8}$`), id)

	stamp := strings.Split(id, "-")[1]
	millis, err := strconv.ParseInt(strings.ToLower(stamp), 36, 64)
	require.NoError(t, err)
	assert.Equal(t, fixed.UnixMilli(), millis)

	other, err := gen.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, id, other, "random suffix must differ between calls")
}
