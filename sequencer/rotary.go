package sequencer

// Encoder line weights. The two lines sit on adjacent input bits, so a
// position sample is one of 0, 16, 32 or 48.
const (
	RotaryLineA uint8 = 16
	RotaryLineB uint8 = 32
	RotaryRest        = RotaryLineA | RotaryLineB
)

// RotaryPosition combines the two line levels into a position sample
func RotaryPosition(a, b bool) uint8 {
	var pos uint8
	if a {
		pos |= RotaryLineA
	}
	if b {
		pos |= RotaryLineB
	}
	return pos
}

// Rotary decodes the pattern-select encoder.
// Only the two transitions out of the rest position count; anything else
// (including contact bounce) is ignored.
type Rotary struct {
	prev uint8
}

// Turn feeds one position sample and returns +1 (clockwise), -1
// (counterclockwise) or 0.
func (r *Rotary) Turn(pos uint8) int {
	delta := 0
	if r.prev == RotaryRest {
		switch pos {
		case RotaryLineB:
			delta = 1
		case RotaryLineA:
			delta = -1
		}
	}
	r.prev = pos
	return delta
}

// Prev returns the last sampled position
func (r *Rotary) Prev() uint8 {
	return r.prev
}
