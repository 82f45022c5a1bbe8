package planner

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

const placeholderSize = 16

// PlaceholderImage returns a small base64-encoded PNG whose colour is
// derived from id and country, so equal requests yield equal images.
func PlaceholderImage(id string, country string) (string, error) {
	sum := hash(country + "/" + id)
	fill := color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
