package detector

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSize returns the pixel dimensions of an encoded image without decoding it fully.
func ImageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ScaleImage resizes an image by factor and re-encodes it as JPEG.
// Factors of 1 or more return the original bytes.
func ScaleImage(data []byte, factor float64) ([]byte, error) {
	if factor >= 1 || factor <= 0 {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return encodeJPEG(resize(img, factor))
}

// Thumbnail re-encodes an image as JPEG with its longer side shrunk to at most
// maxDim pixels. Smaller images keep their size.
func Thumbnail(data []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	longest := max(img.Bounds().Dx(), img.Bounds().Dy())
	if maxDim > 0 && longest > maxDim {
		img = resize(img, float64(maxDim)/float64(longest))
	}
	return encodeJPEG(img)
}

func resize(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	newWidth := max(int(float64(bounds.Dx())*factor), 1)
	newHeight := max(int(float64(bounds.Dy())*factor), 1)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
