package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// StatusNonce derives the anti-forgery token for the async status-check
// endpoint. The token is scoped to the (payment ID, transaction ID) pair so
// a token handed out for one payment cannot poke at another.
func StatusNonce(secret string, paymentID uint, transactionID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d:%s", paymentID, transactionID)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyStatusNonce checks a presented token in constant time
func VerifyStatusNonce(secret string, paymentID uint, transactionID, nonce string) bool {
	expected := StatusNonce(secret, paymentID, transactionID)
	return hmac.Equal([]byte(expected), []byte(nonce))
}
