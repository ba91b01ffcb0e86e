package licensing

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const (
	keyPrefix     = "WL"
	keyGroupCount = 4
	keyGroupSize  = 5
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// MintKey generates a license key of the form WL-XXXXX-XXXXX-XXXXX-XXXXX.
// Keys carry 100 bits of entropy; collisions are caught by the unique
// constraint on the column.
func MintKey() (string, error) {
	raw := make([]byte, 13)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("mint license key: %w", err)
	}
	encoded := keyEncoding.EncodeToString(raw)

	groups := make([]string, 0, keyGroupCount+1)
	groups = append(groups, keyPrefix)
	for i := 0; i < keyGroupCount; i++ {
		start := i * keyGroupSize
		groups = append(groups, encoded[start:start+keyGroupSize])
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeKey upper-cases and trims a user-supplied license key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
