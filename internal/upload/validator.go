package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kdduha/glowu/backend/internal/metrics"
)

const (
	DefaultMaxBytes = 20 << 20
	// DefaultMaxPixels matches the decompression bomb limit of common imaging libraries.
	DefaultMaxPixels = 178956970
)

var (
	ErrEmptyUpload  = errors.New("empty upload")
	ErrInvalidImage = errors.New("invalid image")
)

// InvalidImageError matches ErrInvalidImage and prints as the decoder's reason.
type InvalidImageError struct {
	Cause error
}

func (e *InvalidImageError) Error() string {
	return e.Cause.Error()
}

func (e *InvalidImageError) Unwrap() error {
	return e.Cause
}

func (e *InvalidImageError) Is(target error) bool {
	return target == ErrInvalidImage
}

// inlineFormats lists formats the model accepts without conversion.
var inlineFormats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Image is a fully decoded upload.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int

	decoded image.Image
}

// Payload returns the bytes and MIME type to send to the model. Formats the
// model cannot take inline are re-encoded as PNG.
func (i *Image) Payload() ([]byte, string, error) {
	if mimeType, ok := inlineFormats[i.Format]; ok {
		return i.Data, mimeType, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, i.decoded); err != nil {
		return nil, "", fmt.Errorf("re-encode %s as png: %w", i.Format, err)
	}
	return buf.Bytes(), inlineFormats["png"], nil
}

type Validator struct {
	maxBytes  int64
	maxPixels int64
}

// NewValidator falls back to the defaults for non-positive limits.
func NewValidator(maxBytes, maxPixels int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Validator{
		maxBytes:  maxBytes,
		maxPixels: maxPixels,
	}
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks the header dimensions against the pixel limit before
// decoding the whole buffer, so truncated streams fail here rather than at
// the provider.
func (v *Validator) Validate(data []byte) (*Image, error) {
	start := time.Now()

	img, err := v.validate(data)
	if err != nil {
		metrics.ImageValidation(metrics.StatusFailed, "unknown", time.Since(start))
		return nil, err
	}

	metrics.ImageValidation(metrics.StatusSuccess, img.Format, time.Since(start))
	return img, nil
}

func (v *Validator) validate(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	if int64(len(data)) > v.maxBytes {
		return nil, &InvalidImageError{
			Cause: fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)", len(data), v.maxBytes),
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Cause: err}
	}

	pixels := int64(cfg.Width) * int64(cfg.Height)
	if pixels > v.maxPixels {
		return nil, &InvalidImageError{
			Cause: fmt.Errorf("pixel count exceeds limit: %dx%d = %d (max %d)", cfg.Width, cfg.Height, pixels, v.maxPixels),
		}
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Cause: err}
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, &InvalidImageError{Cause: errors.New("image has no pixels")}
	}

	return &Image{
		Data:    data,
		Format:  format,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		decoded: decoded,
	}, nil
}
