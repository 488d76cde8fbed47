package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"

	"github.com/disintegration/imaging"
)

// stripExif re-encodes JPEG images so that EXIF metadata (location, camera
// serials) never reaches the blob store. Anything else comes back rewound and
// untouched.
func stripExif(data *bytes.Reader) (*bytes.Reader, error) {
	_, format, err := image.DecodeConfig(data)
	if _, seekErr := data.Seek(0, io.SeekStart); seekErr != nil {
		return nil, seekErr
	}

	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			// not an image we know, nothing to strip
			return data, nil
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format != "jpeg" {
		return data, nil
	}

	// decoding drops every EXIF segment; orientation is applied to the pixels first
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(75)); err != nil {
		return nil, fmt.Errorf("failed to re-encode Exif-stripped JPEG image: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
