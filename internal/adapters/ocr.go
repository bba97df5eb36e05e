package adapters

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/screendiary/screendiary/internal/types"
)

// maxOCRWidth is the downscale ceiling before handing a frame to the OCR
// engine (spec.md section 4.A): "downscaled to <= 2000 px wide".
const maxOCRWidth = 2000

// TesseractOCR shells out to a Tesseract-compatible engine configured for
// TSV output so word boxes come back alongside the recognized text.
type TesseractOCR struct {
	Binary string // default "tesseract"
}

func NewTesseractOCR() *TesseractOCR { return &TesseractOCR{Binary: "tesseract"} }

var _ OCREngine = (*TesseractOCR)(nil)

func (t *TesseractOCR) Recognize(ctx context.Context, img *types.Image, languages string, psm int) (*OCRResult, error) {
	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}

	gray, scale := grayscaleDownscale(img, maxOCRWidth)

	tmpIn := filepath.Join(os.TempDir(), fmt.Sprintf("screendiary-ocr-in-%d.png", os.Getpid()))
	defer os.Remove(tmpIn)
	if err := writePNG(tmpIn, gray); err != nil {
		return nil, fmt.Errorf("adapters: writing ocr input: %w", err)
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("screendiary-ocr-out-%d", os.Getpid()))
	defer os.Remove(outBase + ".tsv")

	args := []string{tmpIn, outBase, "-l", languages, "--psm", strconv.Itoa(psm), "tsv"}
	cmd := exec.CommandContext(ctx, binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("adapters: tesseract failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	tsv, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return nil, fmt.Errorf("adapters: reading tesseract tsv: %w", err)
	}

	return parseTesseractTSV(tsv, scale), nil
}

// parseTesseractTSV reads tesseract's TSV output (level, page_num,
// block_num, par_num, line_num, word_num, left, top, width, height, conf,
// text) and rescales boxes back to original-image coordinates.
func parseTesseractTSV(tsv []byte, scale float64) *OCRResult {
	scanner := bufio.NewScanner(bytes.NewReader(tsv))
	var words []OCRWord
	var textParts []string
	var confSum float64
	var confCount int

	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header row
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 {
			continue
		}
		conf, _ := strconv.ParseFloat(fields[10], 64)
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}
		left, _ := strconv.Atoi(fields[6])
		top, _ := strconv.Atoi(fields[7])
		w, _ := strconv.Atoi(fields[8])
		h, _ := strconv.Atoi(fields[9])

		words = append(words, OCRWord{
			Word:       text,
			Left:       int(float64(left) / scale),
			Top:        int(float64(top) / scale),
			Width:      int(float64(w) / scale),
			Height:     int(float64(h) / scale),
			Confidence: conf,
		})
		textParts = append(textParts, text)
		if conf >= 0 {
			confSum += conf
			confCount++
		}
	}

	mean := 0.0
	if confCount > 0 {
		mean = confSum / float64(confCount)
	}

	return &OCRResult{
		Text:           strings.Join(textParts, " "),
		MeanConfidence: mean,
		Words:          words,
		ScaleFactor:    scale,
	}
}

// grayscaleDownscale converts to 8-bit grayscale and, if wider than
// maxWidth, downscales preserving aspect ratio; returns the scale factor
// applied (downscaled/original) so callers can rescale boxes back.
func grayscaleDownscale(img *types.Image, maxWidth int) (image.Image, float64) {
	src := toImageImage(img)
	scale := 1.0
	w, h := img.Width, img.Height
	if w > maxWidth {
		scale = float64(maxWidth) / float64(w)
		w = maxWidth
		h = int(float64(img.Height) * scale)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, scale
}

func toImageImage(img *types.Image) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(out.Pix, img.Pix)
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
