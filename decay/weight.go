// Package decay implements forward-decayed statistics: a t-digest and a
// counter whose samples lose weight exponentially with age.
//
// Instead of touching every sample as time passes, new samples get
// exponentially more weight relative to a fixed landmark, and queries divide
// by the weight of "now". Every so often the landmark is moved forward and all
// stored weights are rescaled, which keeps the numbers from overflowing.
package decay

import (
	"math"

	"github.com/grafana/decaystats/errors"
)

const (
	// once a sample's weight decays below this it is considered gone
	ZeroWeightThreshold = 1e-5

	// stored weights are multiplied by this so they stay well above the
	// digest's own notion of a light centroid
	ScaleFactor = 1 / ZeroWeightThreshold

	// seconds between forced landmark rescales
	RescaleThresholdSeconds = 50
)

// Weight returns the forward-decay weight of a sample at time t (seconds)
// relative to landmark (seconds).
func Weight(alpha float64, t, landmark int64) float64 {
	return math.Exp(alpha * float64(t-landmark))
}

// OneMinute returns the alpha for a one minute mean lifetime.
func OneMinute() float64 {
	return Seconds(60)
}

func FiveMinutes() float64 {
	return Seconds(300)
}

func FifteenMinutes() float64 {
	return Seconds(900)
}

// Seconds returns the alpha for a mean lifetime of the given number of seconds.
func Seconds(seconds int) float64 {
	return 1 / float64(seconds)
}

// ComputeAlpha returns the alpha under which a sample aged ageSeconds is
// worth targetWeight of a fresh one.
func ComputeAlpha(targetWeight float64, ageSeconds int64) (float64, error) {
	if ageSeconds <= 0 {
		return 0, errors.NewInvalidArgument("decay: age must be > 0")
	}
	if !(targetWeight > 0 && targetWeight < 1) {
		return 0, errors.NewInvalidArgument("decay: target weight must be in range (0, 1)")
	}
	return -math.Log(targetWeight) / float64(ageSeconds), nil
}

// ValidateAlpha checks alpha is usable as a decay rate. 0 disables decay.
func ValidateAlpha(alpha float64) error {
	if !(alpha >= 0 && alpha < 1) {
		return errors.NewInvalidArgumentf("decay: alpha must be in range [0, 1), got %v", alpha)
	}
	return nil
}
