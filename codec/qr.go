package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // scan input decoding
	_ "image/png"  // scan input decoding

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrgen "github.com/skip2/go-qrcode"
)

// DefaultSize is the default rendered QR image edge length in pixels.
const DefaultSize = 256

// Options control QR rendering.
type Options struct {
	// Size is the image edge length in pixels; DefaultSize when zero.
	Size int
	// RecoveryLevel is one of "low", "medium", "high", "highest";
	// "medium" when empty.
	RecoveryLevel string
}

func (o Options) size() int {
	if o.Size <= 0 {
		return DefaultSize
	}
	return o.Size
}

func (o Options) level() (qrgen.RecoveryLevel, error) {
	switch o.RecoveryLevel {
	case "", "medium":
		return qrgen.Medium, nil
	case "low":
		return qrgen.Low, nil
	case "high":
		return qrgen.High, nil
	case "highest":
		return qrgen.Highest, nil
	default:
		return 0, fmt.Errorf("invalid recovery level: %s", o.RecoveryLevel)
	}
}

// Generate renders a payment as a QR code PNG.
func Generate(p Payment, opts Options) ([]byte, error) {
	text, err := Encode(p)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	level, err := opts.level()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	png, err := qrgen.Encode(text, level, opts.size())
	if err != nil {
		return nil, fmt.Errorf("generate: render qr: %w", err)
	}

	return png, nil
}

// Scan decodes a QR code image (PNG or JPEG) back into a payment.
func Scan(data []byte) (Payment, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Payment{}, fmt.Errorf("scan: decode image: %w: %w", ErrMalformed, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Payment{}, fmt.Errorf("scan: prepare bitmap: %w", err)
	}

	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return Payment{}, fmt.Errorf("scan: read qr: %w: %w", ErrMalformed, err)
	}

	p, err := Decode(result.GetText())
	if err != nil {
		return Payment{}, fmt.Errorf("scan: %w", err)
	}

	return p, nil
}
