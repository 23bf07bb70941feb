// Package energy turns analyser taps into a single smoothed "vibe" value.
package energy

import "math"

const (
	// SmoothingFactor is the per-frame step toward the latest raw energy.
	SmoothingFactor = 0.08

	VibeBase     = 0.6
	VibeInGain   = 1.8
	VibeOutGain  = 2.4
	VibeCeiling  = 1.6
	sampleCentre = 128.0
)

// Tap exposes the latest time-domain window of an audio stream as unsigned
// 8-bit samples centred at 128.
type Tap interface {
	ByteTimeDomainData(dst []byte)
}

// Sample returns the RMS amplitude of the tap's current window in [0, 1].
// A nil tap or empty scratch buffer yields 0.
func Sample(tap Tap, scratch []byte) float64 {
	if tap == nil || len(scratch) == 0 {
		return 0
	}
	tap.ByteTimeDomainData(scratch)

	var sum float64
	for _, b := range scratch {
		v := (float64(b) - sampleCentre) / sampleCentre
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(scratch)))
}

// Smoother is an exponential moving average with SmoothingFactor.
type Smoother struct {
	value float64
}

// Update moves the smoothed value toward raw and returns it.
func (s *Smoother) Update(raw float64) float64 {
	s.value += (raw - s.value) * SmoothingFactor
	return s.value
}

// Value returns the current smoothed value.
func (s *Smoother) Value() float64 {
	return s.value
}

// Vibe combines smoothed input and output energy into the animation
// intensity, always within [VibeBase, VibeCeiling] for non-negative inputs.
func Vibe(in, out float64) float64 {
	return math.Min(VibeCeiling, VibeBase+in*VibeInGain+out*VibeOutGain)
}

// Meter tracks the smoothed input and output energies. The zero value is
// silent and ready to use.
type Meter struct {
	In  Smoother
	Out Smoother
}

// Update feeds one frame of raw energies and returns the resulting vibe.
func (m *Meter) Update(rawIn, rawOut float64) float64 {
	m.In.Update(rawIn)
	m.Out.Update(rawOut)
	return m.Vibe()
}

// Vibe returns the vibe for the current smoothed energies.
func (m *Meter) Vibe() float64 {
	return Vibe(m.In.Value(), m.Out.Value())
}
