package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateSecureRandomString generates a cryptographically secure random string of the specified byte length,
// then hex encodes it. For example, lengthInBytes=4 will result in an 8-character hex string.
func GenerateSecureRandomString(lengthInBytes int) (string, error) {
	if lengthInBytes <= 0 {
		return "", fmt.Errorf("lengthInBytes must be positive")
	}
	b := make([]byte, lengthInBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TransactionIDGenerator produces payment references of the form TXN-<base36 unix millis>-<8 hex>.
type TransactionIDGenerator struct {
	Now func() time.Time
}

// NewTransactionIDGenerator returns a generator driven by the wall clock.
func NewTransactionIDGenerator() *TransactionIDGenerator {
	return &TransactionIDGenerator{Now: time.Now}
}

// Generate returns a new upper-case transaction id.
func (g *TransactionIDGenerator) Generate() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix, err := GenerateSecureRandomString(4)
	if err != nil {
		return "", err
	}
	stamp := strconv.FormatInt(now().UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("TXN-%s-%s", stamp, suffix)), nil
}
