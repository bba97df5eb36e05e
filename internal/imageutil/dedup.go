package imageutil

import "github.com/screendiary/screendiary/internal/types"

// Similarity computes spec.md's dedup similarity: both images are
// downscaled to 480x300 RGB and compared as
// 1 - mean(|delta|)/255 over all three channels. The result is symmetric
// and exactly 1.0 for identical inputs, since differencing is itself
// symmetric and a zero delta maps to 1-0=1.
//
// This is plain arithmetic over decoded pixels; no image-similarity library
// in the corpus does anything more than what stdlib math already expresses
// here, so no third-party dependency is pulled in for it.
func Similarity(a, b *types.Image) float64 {
	da := ResizeRGB(a, DedupWidth, DedupHeight)
	db := ResizeRGB(b, DedupWidth, DedupHeight)

	var sum float64
	n := len(da.Pix)
	for i := 0; i < n; i += 4 {
		sum += absDiff(da.Pix[i], db.Pix[i])
		sum += absDiff(da.Pix[i+1], db.Pix[i+1])
		sum += absDiff(da.Pix[i+2], db.Pix[i+2])
	}
	channels := float64(n/4) * 3
	mean := sum / channels

	return 1.0 - mean/255.0
}

func absDiff(a, b byte) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
