package playback

import "time"

// Jitter draws the randomized delays added in anti-detection mode. All
// draws are independent and uniform.
type Jitter struct {
	r Rand
}

// NewJitter returns a Jitter over r.
func NewJitter(r Rand) Jitter {
	return Jitter{r: r}
}

func (j Jitter) between(lo, hi float64) time.Duration {
	return seconds(lo + j.r.Float64()*(hi-lo))
}

// Step is added to the delay before event i. Every fifth step gets the
// larger base.
func (j Jitter) Step(i int) time.Duration {
	base := 0.01
	if i%5 == 0 {
		base = 0.02
	}
	return j.between(base-0.005, base+0.005)
}

// AfterClick is slept after a button press or release.
func (j Jitter) AfterClick() time.Duration { return j.between(0.03, 0.07) }

// AfterKey is slept after a key press.
func (j Jitter) AfterKey() time.Duration { return j.between(0.02, 0.05) }

// BetweenIterations is slept between repeats.
func (j Jitter) BetweenIterations() time.Duration { return j.between(0.8, 1.2) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
