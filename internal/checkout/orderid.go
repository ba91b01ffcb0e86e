package checkout

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

var orderIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewOrderID builds a provider-facing order number like ORD-20260831-K3J9QX.
// The random tail keeps concurrent checkouts collision-free; the date keeps
// support lookups humane.
func NewOrderID(prefix string, now time.Time) (string, error) {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	tail := orderIDEncoding.EncodeToString(raw)[:6]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), tail), nil
}
