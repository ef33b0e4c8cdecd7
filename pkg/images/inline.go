package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxInlineSide caps the larger side of an inlined image.
	MaxInlineSide = 800
	inlineQuality = 70
)

// ScaledSize returns w×h scaled so the larger side is at most limit,
// preserving the aspect ratio. Smaller images are returned unchanged.
func ScaledSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// Inline downsizes data and returns it as a JPEG data URL. Input that does
// not decode as an image is returned unchanged as a data URL of its sniffed
// type, so the caller always gets something to store.
func Inline(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return dataURL(mediaType(data), data), nil
	}

	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), MaxInlineSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; flatten onto white rather than black.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: inlineQuality}); err != nil {
		return "", fmt.Errorf("encode inline jpeg: %w", err)
	}
	return dataURL("image/jpeg", buf.Bytes()), nil
}

func mediaType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

func dataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
