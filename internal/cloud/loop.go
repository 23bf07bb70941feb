package cloud

import "github.com/dooshek/vibe/internal/energy"

// State is everything one animation frame produces. The zero value is the
// state before the first frame.
type State struct {
	Energy  energy.Meter
	Vibe    float64
	Ms      float64
	Sprites []Sprite
}

// Next advances the animation by one frame. It smooths the raw energies,
// derives the vibe and places the blobs at time ms. It does not modify prev
// or the field.
func Next(f *Field, prev State, ms, rawIn, rawOut float64) State {
	next := State{Energy: prev.Energy, Ms: ms}
	next.Vibe = next.Energy.Update(rawIn, rawOut)
	next.Sprites = f.Frame(next.Vibe, ms)
	return next
}
