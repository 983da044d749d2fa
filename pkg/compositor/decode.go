package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Tile formats a capture backend may hand back.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when captured bytes are not a decodable image.
var ErrDecode = errors.New("tile decode failed")

// Decode turns captured bytes into an image, accepting PNG, JPEG and WebP.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty capture", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}
	return img, nil
}
