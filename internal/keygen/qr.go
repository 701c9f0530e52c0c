package keygen

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const DefaultQRSize = 256

var ErrEmptySeed = errors.New("seed is empty")

// QRCode renders seed as a size x size PNG QR code.
func QRCode(seed string, size int) ([]byte, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, ErrEmptySeed
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	code, err := qr.Encode(seed, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	// Scale refuses to shrink below the symbol's module count.
	if b := code.Bounds(); size < b.Dx() {
		size = b.Dx()
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
