//go:build !gocv

package imaging

import "github.com/kdimtricp/pagescan/internal/keyframe"

// Default returns the analyzer compiled into this binary.
func Default() keyframe.Measurer {
	return NewAnalyzer()
}
