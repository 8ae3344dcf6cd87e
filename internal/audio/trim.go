package audio

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/desertthunder/tapedeck/internal/shared"
)

// TrimBuffer picks a contiguous window of exactly seconds from b, starting at a uniformly random frame.
//
// It returns the window and its start frame. A clip shorter than the window returns
// [shared.ErrInvalidDuration] and no window.
func TrimBuffer(b *Buffer, seconds float64, rng *rand.Rand) (*Buffer, int, error) {
	if seconds <= 0 {
		return nil, 0, fmt.Errorf("%w: window must be positive, got %gs", shared.ErrInvalidDuration, seconds)
	}

	need := int(math.Round(seconds * float64(b.SampleRate)))
	frames := b.Frames()
	if need > frames || need == 0 {
		return nil, 0, fmt.Errorf("%w: clip is %s, window is %gs", shared.ErrInvalidDuration, b.Duration(), seconds)
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	start := rng.IntN(frames - need + 1)
	return b.Slice(start, start+need), start, nil
}
