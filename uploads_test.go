package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/mmdatafocus/barstock_backend/utils"
)

type putCall struct {
	key, contentType string
	data             []byte
}

type fakeStore struct {
	puts []putCall
	err  error
}

func (s *fakeStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.puts = append(s.puts, putCall{key: key, contentType: contentType, data: data})
	return "https://cdn.test/" + key, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestStoreProductImage_ResizesAndUploadsThumbnail(t *testing.T) {
	store := &fakeStore{}
	upload, err := storeProductImage(context.Background(), store, "bar-1", "p1", pngBytes(t, 2400, 1200))
	if err != nil {
		t.Fatalf("storeProductImage: %v", err)
	}
	if len(store.puts) != 2 {
		t.Fatalf("puts = %d, want 2", len(store.puts))
	}
	full, thumb := store.puts[0], store.puts[1]
	if !strings.HasPrefix(full.key, "bar-1/products/p1/") || !strings.HasSuffix(full.key, ".jpg") {
		t.Fatalf("object key = %q", full.key)
	}
	if thumb.key != thumbnailObjectKey(full.key) || full.contentType != "image/jpeg" || thumb.contentType != "image/jpeg" {
		t.Fatalf("puts = %q %q", full.key, thumb.key)
	}
	if upload.ImageURL != "https://cdn.test/"+full.key || upload.ThumbnailURL != "https://cdn.test/"+thumb.key {
		t.Fatalf("upload = %+v", upload)
	}

	bounds := func(data []byte) image.Rectangle {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode stored image: %v", err)
		}
		return img.Bounds()
	}
	if b := bounds(full.data); b.Dx() != 1200 || b.Dy() != 600 {
		t.Fatalf("full size = %v, want 1200x600", b.Size())
	}
	if b := bounds(thumb.data); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("thumbnail size = %v, want 200x100", b.Size())
	}
}

func TestStoreProductImage_KeepsSmallImages(t *testing.T) {
	store := &fakeStore{}
	if _, err := storeProductImage(context.Background(), store, "bar-1", "p1", pngBytes(t, 300, 300)); err != nil {
		t.Fatalf("storeProductImage: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(store.puts[0].data))
	if err != nil || img.Bounds().Dx() != 300 {
		t.Fatalf("small image was resized: %v %v", img.Bounds(), err)
	}
}

func TestStoreProductImage_Errors(t *testing.T) {
	if _, err := storeProductImage(context.Background(), &fakeStore{}, "bar-1", "p1", []byte("not an image")); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("garbage: err = %v, want input error", err)
	}
	failing := &fakeStore{err: errors.New("bucket unavailable")}
	_, err := storeProductImage(context.Background(), failing, "bar-1", "p1", pngBytes(t, 10, 10))
	if err == nil || errors.Is(err, utils.ErrorInvalidInput) || statusFor(err) != 500 {
		t.Fatalf("store failure: err = %v", err)
	}
}

func TestThumbnailObjectKey(t *testing.T) {
	if got := thumbnailObjectKey("bar-1/products/p1/a.jpg"); got != "bar-1/products/p1/thumbnails/a.jpg" {
		t.Fatalf("thumbnail key = %q", got)
	}
}
