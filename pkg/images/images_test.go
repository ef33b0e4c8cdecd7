package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unowned-ai/wayfarer/pkg/metrics"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) (string, []byte) {
	t.Helper()
	require.True(t, strings.HasPrefix(url, "data:"))
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	require.True(t, ok)
	require.True(t, strings.HasSuffix(meta, ";base64"))
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return strings.TrimSuffix(meta, ";base64"), raw
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{1600, 1200, 800, 600},
		{1200, 1600, 600, 800},
		{400, 300, 400, 300},
		{800, 800, 800, 800},
		{4000, 10, 800, 2},
		{5000, 1, 800, 1},
	}
	for _, tt := range tests {
		w, h := ScaledSize(tt.w, tt.h, MaxInlineSide)
		assert.Equal(t, tt.wantW, w, "width for %dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "height for %dx%d", tt.w, tt.h)
	}
}

func TestInline_DownscalesToJPEG(t *testing.T) {
	url, err := Inline(pngOf(t, 1600, 1200))
	require.NoError(t, err)

	mt, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/jpeg", mt)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestInline_SmallImageKeepsSize(t *testing.T) {
	url, err := Inline(pngOf(t, 400, 300))
	require.NoError(t, err)

	_, raw := decodeDataURL(t, url)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestInline_UndecodablePassesThrough(t *testing.T) {
	data := []byte("%PDF-1.4 not really an image")
	url, err := Inline(data)
	require.NoError(t, err)

	mt, raw := decodeDataURL(t, url)
	assert.Equal(t, "application/pdf", mt)
	assert.Equal(t, data, raw)
}

func TestUpload_NotConfiguredInlines(t *testing.T) {
	for _, name := range []string{"", PlaceholderCloudName} {
		u := NewUploader(Config{CloudName: name}, nil, nil)
		assert.False(t, u.Configured())

		res, err := u.Upload(context.Background(), "a.png", pngOf(t, 10, 10))
		require.NoError(t, err)
		assert.True(t, res.Inline)
		assert.NoError(t, res.RemoteErr)
		assert.True(t, strings.HasPrefix(res.URL, "data:image/jpeg;base64,"))
	}
}

func TestUpload_EmptyImage(t *testing.T) {
	u := NewUploader(Config{}, nil, nil)
	_, err := u.Upload(context.Background(), "a.png", nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestUpload_Cloudinary(t *testing.T) {
	img := pngOf(t, 20, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "unsigned", r.FormValue("upload_preset"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		got, _ := io.ReadAll(f)
		assert.Equal(t, img, got)
		assert.Equal(t, "beach.png", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/beach.png"}`)
	}))
	defer srv.Close()

	u := NewUploader(Config{CloudName: "demo", UploadPreset: "unsigned", BaseURL: srv.URL}, nil, nil)
	res, err := u.Upload(context.Background(), "/tmp/beach.png", img)
	require.NoError(t, err)
	assert.False(t, res.Inline)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/beach.png", res.URL)
}

func TestUpload_CloudinaryFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"Upload preset not found"}}`)
	}))
	defer srv.Close()

	c := metrics.NewCollector()
	u := NewUploader(Config{CloudName: "demo", UploadPreset: "missing", BaseURL: srv.URL}, nil, c)
	res, err := u.Upload(context.Background(), "a.png", pngOf(t, 10, 10))
	require.NoError(t, err)
	assert.True(t, res.Inline)
	require.Error(t, res.RemoteErr)
	assert.Contains(t, res.RemoteErr.Error(), "Upload preset not found")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ImageUploadFallbacks))
}
