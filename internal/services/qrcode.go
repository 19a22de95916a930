package services

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the edge length in pixels of generated QR images
const DefaultQRSize = 256

// QRCodeGenerator encodes ticket payloads with the highest error correction level
type QRCodeGenerator struct {
	size int
}

// NewQRCodeGenerator creates a generator producing size x size PNGs
func NewQRCodeGenerator(size int) *QRCodeGenerator {
	if size <= 0 {
		size = DefaultQRSize
	}
	return &QRCodeGenerator{size: size}
}

// Generate returns the PNG encoding of payload
func (g *QRCodeGenerator) Generate(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}

	png, err := qrcode.Encode(payload, qrcode.Highest, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
