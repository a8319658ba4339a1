package imaging

import (
	"image"
	"math"
)

const (
	// BinsPerChannel is the histogram resolution of each colour channel.
	BinsPerChannel = 16
	// SignatureSize is the number of bins of a joint 3-channel histogram.
	SignatureSize = BinsPerChannel * BinsPerChannel * BinsPerChannel

	epsilon = 2.220446049250313e-16
)

// Signature is a joint colour histogram normalised to unit L2 norm.
// Bins are laid out blue-major, then green, then red.
type Signature []float32

// HistogramOf builds the joint colour histogram of img.
func HistogramOf(img *image.NRGBA) Signature {
	sig := make(Signature, SignatureSize)
	shift := 8 - log2(BinsPerChannel)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			px := row[x*4 : x*4+3]
			r, g, bl := int(px[0])>>shift, int(px[1])>>shift, int(px[2])>>shift
			sig[(bl*BinsPerChannel+g)*BinsPerChannel+r]++
		}
	}

	sig.normalize()
	return sig
}

func (s Signature) normalize() {
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	scale := 1 / math.Sqrt(sum)
	for i, v := range s {
		s[i] = float32(float64(v) * scale)
	}
}

// Correlate returns the Pearson correlation of two signatures, in [-1, 1].
// Signatures of different length never match. When either side has no
// variance the pair compares as identical, matching OpenCV's HISTCMP_CORREL.
func Correlate(a, b Signature) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	n := float64(len(a))
	var sa, sb, saa, sbb, sab float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		sa += x
		sb += y
		saa += x * x
		sbb += y * y
		sab += x * y
	}

	num := sab - sa*sb/n
	den := (saa - sa*sa/n) * (sbb - sb*sb/n)
	if den <= epsilon {
		return 1
	}

	c := num / math.Sqrt(den)
	return math.Max(-1, math.Min(1, c))
}

func log2(n int) int {
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}
