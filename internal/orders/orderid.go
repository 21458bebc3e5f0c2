package orders

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"
)

// Order references look like ORD-2026-A1B2C3: the year of creation plus six
// random base36 characters. The reference doubles as the payment gateway
// reference and the idempotency key for settlement.
const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const orderIDSuffixLen = 6

var orderIDPattern = regexp.MustCompile(`^ORD-\d{4}-[0-9A-Z]{6}$`)

// NewOrderID generates a fresh order reference for the given time.
func NewOrderID(now time.Time) (string, error) {
	buf := make([]byte, orderIDSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order id: %w", err)
	}
	suffix := make([]byte, orderIDSuffixLen)
	for i, b := range buf {
		suffix[i] = orderIDAlphabet[int(b)%len(orderIDAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", now.Year(), suffix), nil
}

// IsValidOrderID reports whether the value matches the order reference shape.
func IsValidOrderID(value string) bool {
	return orderIDPattern.MatchString(value)
}
