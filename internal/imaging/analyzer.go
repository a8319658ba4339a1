// Package imaging measures frames: a colour signature used to tell frames
// of the same page apart from the next page, and a focus score used to
// pick the sharpest of them.
package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/kdimtricp/pagescan/internal/keyframe"
)

// Analyzer decodes frames from disk and measures them.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Measure(path string) (keyframe.Measurement, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return keyframe.Measurement{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return MeasureImage(img)
}

// MeasureImage measures an already decoded image.
func MeasureImage(img image.Image) (keyframe.Measurement, error) {
	b := img.Bounds()
	if b.Empty() {
		return keyframe.Measurement{}, fmt.Errorf("empty image")
	}

	nrgba := toNRGBA(img)
	return keyframe.Measurement{
		Signature: HistogramOf(nrgba),
		Sharpness: Sharpness(nrgba),
	}, nil
}

func (a *Analyzer) Similarity(ref, sig []float32) float64 {
	return Correlate(ref, sig)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
