package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
)

var (
	// ErrPreviewOnlyImage is returned for blob: references, which only
	// exist inside the editing browser.
	ErrPreviewOnlyImage = errors.New("image is only available in the browser preview")
	// ErrUnsupportedImage is returned when the bytes are not a raster
	// image the PDF renderer can embed.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when an image exceeds the byte cap.
	ErrImageTooLarge = errors.New("image too large")
)

// LoadedImage is an image ready for embedding: PNG or JPEG bytes plus its
// pixel size.
type LoadedImage struct {
	Data   []byte
	Ext    extension.Type
	Width  int
	Height int
}

// ImageSource resolves image references to embeddable bytes.
type ImageSource interface {
	Load(ctx context.Context, ref ImageRef) (*LoadedImage, error)
}

// ImageLoader reads inline data URLs, fetches http(s) URLs and serves
// root-relative paths from the static directory.
type ImageLoader struct {
	StaticDir string
	Client    *http.Client
	MaxBytes  int64
}

// NewImageLoader returns a loader reading local images from staticDir and
// fetching remote ones with the given timeout.
func NewImageLoader(staticDir string, timeout time.Duration, maxBytes int64) *ImageLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	return &ImageLoader{
		StaticDir: staticDir,
		Client:    &http.Client{Timeout: timeout},
		MaxBytes:  maxBytes,
	}
}

func (l *ImageLoader) Load(ctx context.Context, ref ImageRef) (*LoadedImage, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid image reference")
	}
	if ref.PreviewOnly() {
		return nil, ErrPreviewOnlyImage
	}

	src := strings.TrimSpace(string(ref))
	lower := strings.ToLower(src)

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(lower, "data:"):
		data, err = decodeDataURL(src)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		data, err = l.fetch(ctx, src)
	default:
		data, err = l.readStatic(src)
	}
	if err != nil {
		return nil, err
	}
	return normalizeImage(data)
}

func (l *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, l.MaxBytes)
}

// readStatic maps "/static/x.png" and "/x.png" to files under StaticDir
// and refuses anything that would escape it.
func (l *ImageLoader) readStatic(src string) ([]byte, error) {
	if l.StaticDir == "" {
		return nil, fmt.Errorf("no static directory configured")
	}
	if u, err := url.Parse(src); err == nil {
		src = u.Path
	}
	clean := path.Clean("/" + src)
	clean = strings.TrimPrefix(clean, "/static")

	root, err := filepath.Abs(l.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("resolve static dir: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(clean))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return nil, fmt.Errorf("image path escapes static dir")
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return readLimited(f, l.MaxBytes)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = 8 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, max)
	}
	return data, nil
}

// decodeDataURL returns the payload of a data: URL.
func decodeDataURL(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data url")
	}
	meta, payload := src[:comma], src[comma+1:]
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if data, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err2 == nil {
				return data, nil
			}
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return []byte(s), nil
}

// normalizeImage sniffs the bytes and returns PNG or JPEG data. Other
// raster formats are decoded and re-encoded as PNG.
func normalizeImage(data []byte) (*LoadedImage, error) {
	mt := mimetype.Detect(data)

	var ext extension.Type
	switch {
	case mt.Is("image/png"):
		ext = extension.Png
	case mt.Is("image/jpeg"):
		ext = extension.Jpg
	case strings.HasPrefix(mt.String(), "image/"):
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
		}
		return encodeImage(img, extension.Png)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return &LoadedImage{Data: data, Ext: ext, Width: cfg.Width, Height: cfg.Height}, nil
}

func encodeImage(img image.Image, ext extension.Type) (*LoadedImage, error) {
	var buf bytes.Buffer
	format := imaging.PNG
	if ext == extension.Jpg {
		format = imaging.JPEG
	}
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(88)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	b := img.Bounds()
	return &LoadedImage{Data: buf.Bytes(), Ext: ext, Width: b.Dx(), Height: b.Dy()}, nil
}

// CoverCrop crops img to the aspect ratio of a boxW x boxH box, keeping
// the center, so that embedding it at the box size fills the box.
func CoverCrop(img *LoadedImage, boxW, boxH float64) (*LoadedImage, error) {
	if img == nil || boxW <= 0 || boxH <= 0 || img.Width == 0 || img.Height == 0 {
		return img, nil
	}
	srcRatio := float64(img.Width) / float64(img.Height)
	boxRatio := boxW / boxH
	if abs(srcRatio-boxRatio) < 0.01 {
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode for crop: %w", err)
	}

	w, h := img.Width, img.Height
	if srcRatio > boxRatio {
		w = int(float64(h) * boxRatio)
	} else {
		h = int(float64(w) / boxRatio)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	cropped := imaging.Fill(decoded, w, h, imaging.Center, imaging.Lanczos)
	return encodeImage(cropped, img.Ext)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
