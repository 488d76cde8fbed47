package storage

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripExifLeavesNonImagesRewound(t *testing.T) {
	in := bytes.NewReader([]byte("%PDF-1.4 not an image"))

	out, err := stripExif(in)
	require.NoError(t, err)
	data, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 not an image", string(data))
}

func TestStripExifKeepsPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(4, 4, color.White), imaging.PNG))
	original := append([]byte(nil), buf.Bytes()...)

	out, err := stripExif(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestStripExifReencodesJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 6, color.NRGBA{B: 255, A: 255}), imaging.JPEG))

	out, err := stripExif(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 6, cfg.Height)
}
