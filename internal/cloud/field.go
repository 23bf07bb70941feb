// Package cloud computes the animated blob field and rasterises it onto a
// terminal cell grid.
package cloud

import (
	"math"
	"math/rand"
)

const (
	// BlobCount is fixed for the lifetime of a field.
	BlobCount = 18

	timeScale   = 0.00015
	wobble      = 60.0
	wrapMargin  = 40.0
	xStride     = 15.0
	yStride     = 10.0
	radiusBoost = 0.2
	innerRatio  = 0.25
	hueSwing    = 35.0
	hueSpread   = 40.0
)

// Blob is one immutable member of the field.
type Blob struct {
	BaseX  float64
	BaseY  float64
	Radius float64
	Speed  float64
	Offset float64
	Hue    float64
}

// Sprite is a blob placed for a single frame.
type Sprite struct {
	X      float64
	Y      float64
	Radius float64
	Inner  HSLA
	Outer  HSLA
}

// Field holds the blobs and the viewport they animate in.
type Field struct {
	blobs  [BlobCount]Blob
	width  float64
	height float64
}

// NewField generates the blobs for a width x height viewport.
func NewField(rng *rand.Rand, width, height float64) *Field {
	f := &Field{width: width, height: height}
	for i := range f.blobs {
		hue := 180.0
		if i%2 == 1 {
			hue = 260
		}
		f.blobs[i] = Blob{
			BaseX:  rng.Float64() * width,
			BaseY:  rng.Float64() * height,
			Radius: 60 + rng.Float64()*140,
			Speed:  0.3 + rng.Float64()*0.8,
			Offset: rng.Float64() * 2 * math.Pi,
			Hue:    hue,
		}
	}
	return f
}

// Resize changes the viewport. Blob anchors are kept as generated.
func (f *Field) Resize(width, height float64) {
	f.width = width
	f.height = height
}

// Size returns the current viewport.
func (f *Field) Size() (width, height float64) {
	return f.width, f.height
}

// Blobs returns a copy of the field's blobs.
func (f *Field) Blobs() []Blob {
	out := make([]Blob, BlobCount)
	copy(out, f.blobs[:])
	return out
}

// Frame places every blob for the given vibe at time ms, in draw order.
func (f *Field) Frame(vibe, ms float64) []Sprite {
	sprites := make([]Sprite, BlobCount)
	for i, b := range f.blobs {
		sprites[i] = f.place(i, b, vibe, ms)
	}
	return sprites
}

func (f *Field) place(i int, b Blob, vibe, ms float64) Sprite {
	t := ms*timeScale*b.Speed + b.Offset
	idx := float64(i)

	x := floorMod(b.BaseX+math.Sin(t)*wobble*vibe+f.width*1.5+idx*xStride, f.width+2*wrapMargin) - wrapMargin
	y := floorMod(b.BaseY+math.Cos(t*1.3)*wobble*vibe+f.height*1.5+idx*yStride, f.height+2*wrapMargin) - wrapMargin

	hue := b.Hue + vibe*hueSwing
	return Sprite{
		X:      x,
		Y:      y,
		Radius: b.Radius * (1 + vibe*radiusBoost),
		Inner:  HSLA{H: hue, S: 1, L: 0.75, A: 0.15 + vibe*0.08},
		Outer:  HSLA{H: hue + hueSpread, S: 1, L: 0.45, A: 0},
	}
}

// floorMod is a modulo whose result has the sign of m.
func floorMod(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
		if r >= m {
			r = 0
		}
	}
	return r
}
