package imageutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/types"
)

func solidImage(w, h int, r, g, b byte) *types.Image {
	img := &types.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = 255
	}
	return img
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	img := solidImage(640, 400, 10, 20, 30)
	require.InDelta(t, 1.0, Similarity(img, img), 1e-9)
}

func TestSimilaritySymmetric(t *testing.T) {
	a := solidImage(640, 400, 10, 20, 30)
	b := solidImage(640, 400, 200, 100, 50)
	require.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
}

func TestSimilarityDropsWithDifference(t *testing.T) {
	a := solidImage(640, 400, 0, 0, 0)
	b := solidImage(640, 400, 255, 255, 255)
	require.InDelta(t, 0.0, Similarity(a, b), 1e-6)
}
