package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// StickerSize is the edge length WhatsApp renders stickers at.
const StickerSize = 512

// ErrNotImage is returned when sticker input is not a decodable image.
var ErrNotImage = errors.New("input is not an image")

// PrepareSticker fits an image into a transparent 512x512 square.
// Ready-made webp stickers pass through untouched; everything else is
// re-encoded as lossless webp, the only format WhatsApp renders.
func PrepareSticker(data []byte) ([]byte, string, error) {
	mime := DetectMIME(data)
	if !IsImage(data) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if mime == "image/webp" && b.Dx() == StickerSize && b.Dy() == StickerSize {
		return data, mime, nil
	}

	fitted := imaging.Fit(img, StickerSize, StickerSize, imaging.Lanczos)
	canvas := imaging.New(StickerSize, StickerSize, color.NRGBA{})
	canvas = imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, canvas, nil); err != nil {
		return nil, "", fmt.Errorf("failed to encode sticker: %w", err)
	}
	return buf.Bytes(), "image/webp", nil
}
