// Package keyframe groups an ordered run of frames into segments of
// visually similar frames and keeps one representative per segment.
package keyframe

import "math"

const (
	DefaultMinSimilarity  = 0.92
	DefaultSharpnessFloor = 0.1
)

// Thresholds configures segment boundaries and representative eligibility.
type Thresholds struct {
	// MinSimilarity is the lowest similarity at which a frame still joins
	// the open segment.
	MinSimilarity float64
	// SharpnessFloor is the lowest sharpness at which a frame may become
	// the segment's representative.
	SharpnessFloor float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSimilarity:  DefaultMinSimilarity,
		SharpnessFloor: DefaultSharpnessFloor,
	}
}

// Measurement is what the grouper knows about a frame.
type Measurement struct {
	Signature []float32
	Sharpness float64
}

// Keyframe is the representative chosen for a closed segment.
type Keyframe struct {
	Path      string
	Sharpness float64
	// Segment is the zero-based index of the segment in the document.
	Segment int
	// Frames is the number of readable frames the segment absorbed.
	Frames int
	// Fallback is set when no frame of the segment met the sharpness
	// floor and the most recent frame was kept instead.
	Fallback bool
}

// Segment is the state of an open segment. It is a value: transitions
// return a new Segment and leave the receiver untouched.
type Segment struct {
	index     int
	reference []float32

	bestPath      string
	bestSharpness float64

	lastPath      string
	lastSharpness float64

	frames int
}

// Open starts segment index with its first frame.
func Open(index int, path string, m Measurement, th Thresholds) Segment {
	s := Segment{
		index:         index,
		reference:     m.Signature,
		bestSharpness: math.Inf(-1),
		lastPath:      path,
		lastSharpness: m.Sharpness,
		frames:        1,
	}
	if m.Sharpness >= th.SharpnessFloor {
		s.bestPath = path
		s.bestSharpness = m.Sharpness
	}
	return s
}

func (s Segment) Index() int           { return s.index }
func (s Segment) Reference() []float32 { return s.reference }
func (s Segment) Frames() int          { return s.frames }

// HasBest reports whether some frame of the segment met the sharpness floor.
func (s Segment) HasBest() bool { return s.bestPath != "" }

// Advance feeds the next frame and its similarity to the segment's
// reference. Below MinSimilarity the segment closes and its representative
// is returned together with a new segment seeded by the frame. Otherwise
// the frame joins: it becomes the fallback, and if it clears the floor and
// is strictly sharper than the best so far it also becomes the best frame
// and the new reference.
func (s Segment) Advance(path string, m Measurement, similarity float64, th Thresholds) (Segment, *Keyframe) {
	if similarity < th.MinSimilarity {
		closed := s.Close()
		return Open(s.index+1, path, m, th), &closed
	}

	next := s
	next.lastPath = path
	next.lastSharpness = m.Sharpness
	next.frames++
	if m.Sharpness >= th.SharpnessFloor && m.Sharpness > s.bestSharpness {
		next.bestPath = path
		next.bestSharpness = m.Sharpness
		next.reference = m.Signature
	}
	return next, nil
}

// Close returns the segment's representative: the best frame if one met
// the floor, else the most recent frame.
func (s Segment) Close() Keyframe {
	k := Keyframe{Segment: s.index, Frames: s.frames}
	if s.HasBest() {
		k.Path = s.bestPath
		k.Sharpness = s.bestSharpness
		return k
	}
	k.Path = s.lastPath
	k.Sharpness = s.lastSharpness
	k.Fallback = true
	return k
}
