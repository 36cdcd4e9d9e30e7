package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
)

// ImageIngester turns uploaded image files into inline data URLs that can
// be stored on quotes and settings.
type ImageIngester struct {
	MaxBytes     int64
	MaxDimension int
}

func NewImageIngester(maxBytes int64, maxDimension int) *ImageIngester {
	return &ImageIngester{MaxBytes: maxBytes, MaxDimension: maxDimension}
}

// Ingest reads at most MaxBytes from r. PNG and JPEG files within
// MaxDimension are kept byte for byte; larger ones are downscaled to fit.
// Other raster formats are converted to PNG.
func (in *ImageIngester) Ingest(r io.Reader) (ImageRef, error) {
	data, err := readLimited(r, in.MaxBytes)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}

	img, err := normalizeImage(data)
	if err != nil {
		return "", err
	}

	if limit := in.MaxDimension; limit > 0 && (img.Width > limit || img.Height > limit) {
		decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		img, err = encodeImage(imaging.Fit(decoded, limit, limit, imaging.Lanczos), img.Ext)
		if err != nil {
			return "", err
		}
	}

	return ImageRef("data:" + mimeOf(img) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)), nil
}

func mimeOf(img *LoadedImage) string {
	if img.Ext == extension.Jpg {
		return "image/jpeg"
	}
	return "image/png"
}
