package cloud

import (
	"math"
	"math/rand"
	"testing"
)

func newTestField(w, h float64) *Field {
	return NewField(rand.New(rand.NewSource(42)), w, h)
}

func TestNewFieldBlobRanges(t *testing.T) {
	f := newTestField(800, 600)
	blobs := f.Blobs()
	if len(blobs) != BlobCount {
		t.Fatalf("expected %d blobs, got %d", BlobCount, len(blobs))
	}
	for i, b := range blobs {
		if b.BaseX < 0 || b.BaseX >= 800 || b.BaseY < 0 || b.BaseY >= 600 {
			t.Errorf("blob %d: base (%f, %f) outside viewport", i, b.BaseX, b.BaseY)
		}
		if b.Radius < 60 || b.Radius >= 200 {
			t.Errorf("blob %d: radius %f out of range", i, b.Radius)
		}
		if b.Speed < 0.3 || b.Speed >= 1.1 {
			t.Errorf("blob %d: speed %f out of range", i, b.Speed)
		}
		if b.Offset < 0 || b.Offset >= 2*math.Pi {
			t.Errorf("blob %d: offset %f out of range", i, b.Offset)
		}
		wantHue := 180.0
		if i%2 == 1 {
			wantHue = 260
		}
		if b.Hue != wantHue {
			t.Errorf("blob %d: expected hue %f, got %f", i, wantHue, b.Hue)
		}
	}
}

func TestFrameWrapBounds(t *testing.T) {
	sizes := [][2]float64{{800, 600}, {120, 80}, {1, 1}, {3000, 40}}
	for _, size := range sizes {
		f := newTestField(size[0], size[1])
		for _, vibe := range []float64{0.6, 1.0, 1.6} {
			for ms := 0.0; ms < 600000; ms += 7919 {
				for i, s := range f.Frame(vibe, ms) {
					if s.X < -40 || s.X >= size[0]+40 {
						t.Fatalf("size %v vibe %f ms %f blob %d: x=%f out of bounds", size, vibe, ms, i, s.X)
					}
					if s.Y < -40 || s.Y >= size[1]+40 {
						t.Fatalf("size %v vibe %f ms %f blob %d: y=%f out of bounds", size, vibe, ms, i, s.Y)
					}
				}
			}
		}
	}
}

func TestFrameContinuity(t *testing.T) {
	const w, h = 800.0, 600.0
	f := newTestField(w, h)
	prev := f.Frame(1.0, 10000)
	for ms := 10001.0; ms < 12000; ms++ {
		cur := f.Frame(1.0, ms)
		for i := range cur {
			dx := math.Abs(cur[i].X - prev[i].X)
			dy := math.Abs(cur[i].Y - prev[i].Y)
			// Either a tiny step or a jump across the wrap seam.
			if dx > 1 && math.Abs(dx-(w+80)) > 1 {
				t.Fatalf("blob %d jumped %f in x at %f ms", i, dx, ms)
			}
			if dy > 1 && math.Abs(dy-(h+80)) > 1 {
				t.Fatalf("blob %d jumped %f in y at %f ms", i, dy, ms)
			}
		}
		prev = cur
	}
}

func TestFrameColoursAndRadius(t *testing.T) {
	f := newTestField(800, 600)
	blobs := f.Blobs()
	vibe := 1.2
	for i, s := range f.Frame(vibe, 0) {
		b := blobs[i]
		if math.Abs(s.Radius-b.Radius*(1+vibe*0.2)) > 1e-9 {
			t.Errorf("blob %d: unexpected radius %f", i, s.Radius)
		}
		if math.Abs(s.Inner.H-(b.Hue+vibe*35)) > 1e-9 || s.Inner.L != 0.75 || s.Inner.S != 1 {
			t.Errorf("blob %d: unexpected inner colour %+v", i, s.Inner)
		}
		if math.Abs(s.Inner.A-(0.15+vibe*0.08)) > 1e-9 {
			t.Errorf("blob %d: unexpected inner alpha %f", i, s.Inner.A)
		}
		if math.Abs(s.Outer.H-(s.Inner.H+40)) > 1e-9 || s.Outer.L != 0.45 || s.Outer.A != 0 {
			t.Errorf("blob %d: unexpected outer colour %+v", i, s.Outer)
		}
	}
}

func TestResizeKeepsAnchors(t *testing.T) {
	f := newTestField(800, 600)
	before := f.Blobs()
	f.Resize(200, 100)

	if w, h := f.Size(); w != 200 || h != 100 {
		t.Errorf("expected size 200x100, got %fx%f", w, h)
	}
	after := f.Blobs()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("blob %d changed on resize", i)
		}
	}
	for i, s := range f.Frame(1, 5000) {
		if s.X < -40 || s.X >= 240 || s.Y < -40 || s.Y >= 140 {
			t.Errorf("blob %d outside resized viewport: (%f, %f)", i, s.X, s.Y)
		}
	}
}

func TestFloorMod(t *testing.T) {
	tests := []struct{ v, m, want float64 }{
		{10, 3, 1},
		{-1, 3, 2},
		{-3, 3, 0},
		{0, 5, 0},
	}
	for _, tt := range tests {
		if got := floorMod(tt.v, tt.m); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("floorMod(%v, %v): expected %v, got %v", tt.v, tt.m, tt.want, got)
		}
	}
}
