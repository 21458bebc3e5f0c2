package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// EncodePNG renders the payload as a PNG QR code. Size is in pixels; zero or
// negative falls back to the default.
func EncodePNG(payload string, size int) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("qr payload is required")
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return png, nil
}

// AdminVerifyURL builds the payload encoded into ticket QR codes: the
// back-office lookup page for the order reference.
func AdminVerifyURL(publicURL, orderID string) string {
	return fmt.Sprintf("%s/admin-page/%s", strings.TrimRight(publicURL, "/"), orderID)
}
