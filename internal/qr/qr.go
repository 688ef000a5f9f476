// Package qr renders payment payloads as QR code images.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// imageSize is the side of the generated PNG in pixels. Large enough to
// scan from another phone's screen.
const imageSize = 512

// Render encodes the payload into a PNG image. The payload is treated as
// an opaque string; UPI links, plain URLs, and deal IDs all work.
func Render(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, imageSize)
	if err != nil {
		return nil, fmt.Errorf("error encoding qr: %v", err)
	}
	return png, nil
}
