package decay

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/errors"
	"github.com/grafana/decaystats/tdigest"
)

// Digest is a t-digest whose samples decay exponentially with age.
// A Digest with alpha 0 does not decay.
//
// Digest is not safe for concurrent use; callers are expected to guard it
// together with whatever else they update alongside it.
type Digest struct {
	digest   *tdigest.TDigest
	alpha    float64
	landmark int64 // unix seconds
	clock    clock.Clock
}

func NewDigest(compression, alpha float64) (*Digest, error) {
	return NewDigestWithClock(compression, alpha, clock.New())
}

func NewDigestWithClock(compression, alpha float64, clk clock.Clock) (*Digest, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	digest, err := tdigest.NewWithCompression(compression)
	if err != nil {
		return nil, err
	}
	return &Digest{
		digest:   digest,
		alpha:    alpha,
		landmark: clk.Now().Unix(),
		clock:    clk,
	}, nil
}

func (d *Digest) now() int64 {
	return d.clock.Now().Unix()
}

func (d *Digest) Alpha() float64 {
	return d.alpha
}

// Landmark returns the unix timestamp stored weights are relative to.
func (d *Digest) Landmark() int64 {
	return d.landmark
}

func (d *Digest) Compression() float64 {
	return d.digest.Compression()
}

func (d *Digest) CentroidCount() int {
	return d.digest.CentroidCount()
}

func (d *Digest) EstimatedInMemorySize() int {
	return d.digest.EstimatedInMemorySize()
}

func (d *Digest) Add(value float64) error {
	return d.AddWeighted(value, 1)
}

func (d *Digest) AddWeighted(value, weight float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.NewInvalidArgumentf("decay: value must be finite, got %v", value)
	}
	if !(weight > 0) || math.IsInf(weight, 0) {
		return errors.NewInvalidArgumentf("decay: weight must be finite and > 0, got %v", weight)
	}

	now := d.now()
	if d.alpha > 0 && now-d.landmark >= RescaleThresholdSeconds {
		d.RescaleTo(now)
	}
	return d.digest.AddWeighted(value, weight*Weight(d.alpha, now, d.landmark)*ScaleFactor)
}

// RescaleTo moves the landmark forward to newLandmark, dividing all stored
// weights accordingly and dropping centroids that decayed to nothing.
// Landmarks never move backwards: older values are ignored.
func (d *Digest) RescaleTo(newLandmark int64) {
	if newLandmark <= d.landmark {
		return
	}
	if d.alpha == 0 {
		d.landmark = newLandmark
		return
	}
	factor := Weight(d.alpha, newLandmark, d.landmark)
	if math.IsInf(factor, 1) {
		// everything decayed far beyond the threshold
		d.digest.Reset()
	} else {
		// in stored units, the threshold is ZeroWeightThreshold * ScaleFactor
		d.digest.Rescale(factor, ZeroWeightThreshold*ScaleFactor)
	}
	d.landmark = newLandmark
}

// Count returns the decayed number of samples as of now.
func (d *Digest) Count() float64 {
	stored := d.digest.Count()
	if stored == 0 {
		return 0
	}
	count := stored / (Weight(d.alpha, d.now(), d.landmark) * ScaleFactor)
	if !(count >= ZeroWeightThreshold) {
		return 0
	}
	return count
}

// Min returns the smallest retained value, or NaN if everything decayed.
func (d *Digest) Min() float64 {
	if d.Count() == 0 {
		return math.NaN()
	}
	return d.digest.Min()
}

func (d *Digest) Max() float64 {
	if d.Count() == 0 {
		return math.NaN()
	}
	return d.digest.Max()
}

func (d *Digest) ValueAt(q float64) (float64, error) {
	values, err := d.ValuesAt(q)
	if err != nil {
		return math.NaN(), err
	}
	return values[0], nil
}

// ValuesAt returns the values at the given sorted quantiles. If all samples
// decayed, every value is NaN.
func (d *Digest) ValuesAt(quantiles ...float64) ([]float64, error) {
	values, err := d.digest.ValuesAt(quantiles...)
	if err != nil {
		return nil, err
	}
	if d.Count() == 0 {
		for i := range values {
			values[i] = math.NaN()
		}
	}
	return values, nil
}

// Merge adds other's samples to d. Both must share alpha and, when decaying,
// the landmark. Use RescaleTo on both to align them first.
func (d *Digest) Merge(other *Digest) error {
	if d.alpha != other.alpha {
		return errors.NewInvalidArgumentf("decay: cannot merge digests with different alphas (%v vs %v)", d.alpha, other.alpha)
	}
	if d.alpha > 0 && d.landmark != other.landmark {
		return errors.NewInvalidArgumentf("decay: cannot merge digests with different landmarks (%d vs %d)", d.landmark, other.landmark)
	}
	d.digest.MergeWith(other.digest)
	return nil
}

// Duplicate returns an independent copy of d sharing its clock.
func (d *Digest) Duplicate() *Digest {
	return &Digest{
		digest:   tdigest.CopyOf(d.digest),
		alpha:    d.alpha,
		landmark: d.landmark,
		clock:    d.clock,
	}
}

// Reset discards all samples and moves the landmark to now.
func (d *Digest) Reset() {
	d.digest.Reset()
	d.landmark = d.now()
}

// Snapshot returns a copy of the underlying t-digest with the decayed weights
// as stored. The weights are relative to Landmark and scaled by ScaleFactor.
func (d *Digest) Snapshot() *tdigest.TDigest {
	return tdigest.CopyOf(d.digest)
}
