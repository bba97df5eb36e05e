// Package imageutil holds the small set of image transforms the capture
// loop and archiver need: WebP encode/decode (grounded on chai2010/webp, the
// same library the Viewra media-library server uses alongside GORM+sqlite),
// dedup-comparison downscaling, and thumbnail generation.
package imageutil

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	"github.com/screendiary/screendiary/internal/types"
)

// DedupWidth, DedupHeight are the fixed downscale dimensions spec.md section
// 4.C mandates for similarity comparison.
const (
	DedupWidth  = 480
	DedupHeight = 300
)

func toRGBA(img *types.Image) *image.RGBA {
	out := &image.RGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	return out
}

// EncodeWebP encodes an in-memory image to WebP at the given quality
// (0-100), per spec.md section 4.C/6.
func EncodeWebP(img *types.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: false, Quality: float32(quality)}
	if err := webp.Encode(&buf, toRGBA(img), opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWebP decodes a WebP byte slice into an in-memory image.
func DecodeWebP(data []byte) (*types.Image, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return fromImageImage(img), nil
}

func fromImageImage(img image.Image) *types.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &types.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.Pix[i] = byte(r >> 8)
			out.Pix[i+1] = byte(g >> 8)
			out.Pix[i+2] = byte(bl >> 8)
			out.Pix[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out
}

// Crop extracts a sub-rectangle into a new, tightly-packed Image.
func Crop(img *types.Image, x, y, w, h int) *types.Image {
	out := &types.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for row := 0; row < h; row++ {
		srcOff := ((y+row)*img.Width + x) * 4
		dstOff := row * w * 4
		copy(out.Pix[dstOff:dstOff+w*4], img.Pix[srcOff:srcOff+w*4])
	}
	return out
}

// ResizeRGB downscales img to exactly (w, h) using a high-quality scaler,
// used both for dedup comparison and thumbnail generation.
func ResizeRGB(img *types.Image, w, h int) *types.Image {
	src := toRGBA(img)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return &types.Image{Width: w, Height: h, Pix: dst.Pix}
}

// ResizeWidth downscales img preserving aspect ratio so its width equals
// targetWidth (spec.md section 4.C: thumbnail generation).
func ResizeWidth(img *types.Image, targetWidth int) *types.Image {
	if img.Width <= targetWidth {
		return img
	}
	h := int(float64(img.Height) * float64(targetWidth) / float64(img.Width))
	return ResizeRGB(img, targetWidth, h)
}
