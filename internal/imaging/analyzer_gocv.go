//go:build gocv

package imaging

import (
	"fmt"

	"github.com/kdimtricp/pagescan/internal/keyframe"
	"gocv.io/x/gocv"
)

// CVAnalyzer measures frames through OpenCV. It produces the same
// signature layout and focus score as Analyzer and is selected with the
// gocv build tag.
type CVAnalyzer struct{}

func NewCVAnalyzer() *CVAnalyzer {
	return &CVAnalyzer{}
}

func (a *CVAnalyzer) Measure(path string) (keyframe.Measurement, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return keyframe.Measurement{}, fmt.Errorf("failed to decode %s", path)
	}

	sig, err := cvHistogram(img)
	if err != nil {
		return keyframe.Measurement{}, fmt.Errorf("histogram of %s: %w", path, err)
	}

	return keyframe.Measurement{
		Signature: sig,
		Sharpness: cvSharpness(img),
	}, nil
}

func (a *CVAnalyzer) Similarity(ref, sig []float32) float64 {
	return Correlate(ref, sig)
}

func cvHistogram(img gocv.Mat) (Signature, error) {
	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist(
		[]gocv.Mat{img},
		[]int{0, 1, 2},
		mask,
		&hist,
		[]int{BinsPerChannel, BinsPerChannel, BinsPerChannel},
		[]float64{0, 256, 0, 256, 0, 256},
		false,
	)
	if hist.Empty() {
		return nil, fmt.Errorf("empty histogram")
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(hist, &normalized, 1, 0, gocv.NormL2)

	data, err := normalized.DataPtrFloat32()
	if err != nil {
		return nil, err
	}

	sig := make(Signature, len(data))
	copy(sig, data)
	return sig, nil
}

func cvSharpness(img gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd
}

// Default returns the analyzer compiled into this binary.
func Default() keyframe.Measurer {
	return NewCVAnalyzer()
}
