package midtranswebhook

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

// ComputeSignature derives the signature midtrans attaches to a
// notification: sha512 over order_id + status_code + gross_amount +
// server_key, hex encoded.
func ComputeSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification's signature_key in constant time.
func VerifySignature(n Notification, serverKey string) error {
	expected := ComputeSignature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return pkgerrors.New(pkgerrors.CodeForbidden, "invalid notification signature")
	}
	return nil
}
