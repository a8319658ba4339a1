//go:build gocv

package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadrants(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 200, A: 255},
		{B: 90, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, colors[(y/half)*2+x/half])
		}
	}
	return img
}

func TestCVAnalyzerMatchesAnalyzer(t *testing.T) {
	dir := t.TempDir()
	fixtures := map[string]image.Image{
		"checker.png":   checkerboard(32, 32, 3),
		"quadrants.png": quadrants(32),
	}

	pure, cv := NewAnalyzer(), NewCVAnalyzer()
	for name, img := range fixtures {
		path := filepath.Join(dir, name)
		writePNG(t, path, img)

		want, err := pure.Measure(path)
		require.NoError(t, err)
		got, err := cv.Measure(path)
		require.NoError(t, err)

		require.Len(t, got.Signature, SignatureSize, name)
		for i := range want.Signature {
			assert.InDelta(t, want.Signature[i], got.Signature[i], 1e-6, "%s bin %d", name, i)
		}
		assert.InDelta(t, 1, Correlate(want.Signature, got.Signature), 1e-9, name)
	}

	checker := filepath.Join(dir, "checker.png")
	want, err := pure.Measure(checker)
	require.NoError(t, err)
	got, err := cv.Measure(checker)
	require.NoError(t, err)
	assert.InDelta(t, want.Sharpness, got.Sharpness, want.Sharpness*1e-6)
}

func TestDefaultIsCVAnalyzer(t *testing.T) {
	_, ok := Default().(*CVAnalyzer)
	assert.True(t, ok)
}
