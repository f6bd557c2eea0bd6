// Package tdigest implements a mergeable, array backed t-digest: a sketch of
// a stream of values that answers quantile queries with an error that is
// smallest at the tails.
//
// Raw values are buffered as single-sample centroids and periodically
// compressed: adjacent centroids are folded together as long as the cluster
// stays under a size bound that shrinks towards q=0 and q=1.
//
// A TDigest is safe for concurrent use.
package tdigest

import (
	"encoding/base64"
	"math"
	"sort"
	"unsafe"

	"github.com/grafana/decaystats/errors"
	"go.uber.org/atomic"
)

const DefaultCompression = 100

const (
	minCompression  = 10
	initialCapacity = 1
	fudgeFactor     = 10
)

type TDigest struct {
	id          uint64
	compression float64
	maxSize     int

	lock stampedLock

	// guarded by lock
	means         []float64
	weights       []float64
	centroidCount int
	backwards     bool // flips on every merge pass so rounding does not favour one side
	needsMerge    bool

	indexes     []int
	tempMeans   []float64
	tempWeights []float64

	// only written while holding the write lock, but may be read optimistically
	totalWeight atomic.Float64
	min         atomic.Float64
	max         atomic.Float64
}

// New returns an empty digest with DefaultCompression.
func New() *TDigest {
	d, _ := NewWithCompression(DefaultCompression)
	return d
}

// NewWithCompression returns an empty digest. Compression bounds the number of
// centroids (roughly 2*compression after a merge) and must be at least 10.
func NewWithCompression(compression float64) (*TDigest, error) {
	if err := validateCompression(compression); err != nil {
		return nil, err
	}
	return newDigest(compression, math.Inf(1), math.Inf(-1), 0, 0, make([]float64, initialCapacity), make([]float64, initialCapacity)), nil
}

func validateCompression(compression float64) error {
	if math.IsNaN(compression) || compression < minCompression {
		return errors.NewInvalidArgumentf("tdigest: compression factor too small (< %d)", minCompression)
	}
	if math.IsInf(compression, 0) {
		return errors.NewInvalidArgument("tdigest: compression factor must be finite")
	}
	return nil
}

func newDigest(compression, min, max, totalWeight float64, centroidCount int, means, weights []float64) *TDigest {
	d := &TDigest{
		id:            nextID(),
		compression:   compression,
		maxSize:       int(6 * (internalCompressionFactor(compression) + fudgeFactor)), // 5 * size + size (for centroids + new values)
		means:         means,
		weights:       weights,
		centroidCount: centroidCount,
	}
	d.totalWeight.Store(totalWeight)
	d.min.Store(min)
	d.max.Store(max)
	return d
}

// CopyOf returns an independent copy of other, including any pending raw values.
func CopyOf(other *TDigest) *TDigest {
	other.lock.RLock()
	defer other.lock.RUnlock()

	n := other.centroidCount
	means := make([]float64, n)
	weights := make([]float64, n)
	copy(means, other.means[:n])
	copy(weights, other.weights[:n])

	d := newDigest(other.compression, other.min.Load(), other.max.Load(), other.totalWeight.Load(), n, means, weights)
	d.needsMerge = other.needsMerge
	d.backwards = other.backwards
	return d
}

func (d *TDigest) Compression() float64 {
	return d.compression
}

// Count returns the total weight added to the digest.
func (d *TDigest) Count() float64 {
	return d.readScalar(func() float64 {
		return d.totalWeight.Load()
	})
}

// Min returns the smallest value added, or NaN if the digest is empty.
func (d *TDigest) Min() float64 {
	return d.readScalar(func() float64 {
		if d.totalWeight.Load() == 0 {
			return math.NaN()
		}
		return d.min.Load()
	})
}

// Max returns the largest value added, or NaN if the digest is empty.
func (d *TDigest) Max() float64 {
	return d.readScalar(func() float64 {
		if d.totalWeight.Load() == 0 {
			return math.NaN()
		}
		return d.max.Load()
	})
}

// readScalar evaluates fn without blocking if no writer interferes,
// and under the read lock otherwise.
func (d *TDigest) readScalar(fn func() float64) float64 {
	if stamp, ok := d.lock.tryOptimisticRead(); ok {
		v := fn()
		if d.lock.validate(stamp) {
			return v
		}
	}
	d.lock.RLock()
	v := fn()
	d.lock.RUnlock()
	return v
}

func (d *TDigest) CentroidCount() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.centroidCount
}

func (d *TDigest) Add(value float64) error {
	return d.AddWeighted(value, 1)
}

// AddWeighted adds value with the given weight. NaN or infinite values and
// weights, and non-positive weights, are rejected without touching the digest.
func (d *TDigest) AddWeighted(value, weight float64) error {
	if err := validateSample(value, weight); err != nil {
		return err
	}
	d.lock.Lock()
	d.addLocked(value, weight)
	d.lock.Unlock()
	return nil
}

func validateSample(value, weight float64) error {
	switch {
	case math.IsNaN(value):
		return errors.NewInvalidArgument("tdigest: value is NaN")
	case math.IsNaN(weight):
		return errors.NewInvalidArgument("tdigest: weight is NaN")
	case math.IsInf(value, 0):
		return errors.NewInvalidArgument("tdigest: value must be finite")
	case math.IsInf(weight, 0):
		return errors.NewInvalidArgument("tdigest: weight must be finite")
	case weight <= 0:
		return errors.NewInvalidArgument("tdigest: weight must be > 0")
	}
	return nil
}

func (d *TDigest) addLocked(value, weight float64) {
	if d.centroidCount == len(d.means) {
		if len(d.means) < d.maxSize {
			d.ensureCapacity(minInt(maxInt(len(d.means)*2, initialCapacity), d.maxSize))
		} else {
			d.merge(internalCompressionFactor(d.compression))
			if d.centroidCount >= len(d.means) {
				panic(errors.NewInternal("tdigest: invalid size estimation: " + base64.StdEncoding.EncodeToString(d.serializeLocked())))
			}
		}
	}

	d.means[d.centroidCount] = value
	d.weights[d.centroidCount] = weight
	d.centroidCount++

	d.totalWeight.Store(d.totalWeight.Load() + weight)
	if value < d.min.Load() {
		d.min.Store(value)
	}
	if value > d.max.Load() {
		d.max.Store(value)
	}
	d.needsMerge = true
}

// MergeWith adds all of other's centroids to d and compresses the result.
// other is not modified. Concurrent merges in opposite directions are safe.
func (d *TDigest) MergeWith(other *TDigest) {
	unlock := lockPair(d, other)
	defer unlock()

	n := other.centroidCount
	otherMeans := other.means[:n]
	otherWeights := other.weights[:n]
	otherTotal := other.totalWeight.Load()
	otherMin, otherMax := other.min.Load(), other.max.Load()
	if d == other {
		// the copy below would otherwise read the region it is writing
		otherMeans = append([]float64(nil), otherMeans...)
		otherWeights = append([]float64(nil), otherWeights...)
	}

	if d.centroidCount+n > len(d.means) {
		// first try to make room by compacting, then grow if that is not enough
		d.merge(internalCompressionFactor(d.compression))
		d.ensureCapacity(d.centroidCount + n)
	}

	copy(d.means[d.centroidCount:], otherMeans)
	copy(d.weights[d.centroidCount:], otherWeights)
	d.centroidCount += n

	d.totalWeight.Store(d.totalWeight.Load() + otherTotal)
	d.min.Store(math.Min(d.min.Load(), otherMin))
	d.max.Store(math.Max(d.max.Load(), otherMax))

	d.merge(internalCompressionFactor(d.compression))
}

// ValueAt returns the estimated value at quantile q, which must be in [0, 1].
// An empty digest yields NaN.
func (d *TDigest) ValueAt(q float64) (float64, error) {
	values, err := d.ValuesAt(q)
	if err != nil {
		return math.NaN(), err
	}
	return values[0], nil
}

// ValuesAt returns the estimated values for the given quantiles, which must
// be sorted ascending and lie in [0, 1].
func (d *TDigest) ValuesAt(quantiles ...float64) ([]float64, error) {
	if err := validateQuantiles(quantiles); err != nil {
		return nil, err
	}
	result := make([]float64, len(quantiles))

	d.lock.RLock()
	if !d.needsMerge {
		d.valuesAtLocked(quantiles, result)
		d.lock.RUnlock()
		return result, nil
	}
	d.lock.RUnlock()

	// sync.RWMutex can't upgrade or downgrade, so we merge and query under the
	// write lock. No writer can observe or modify the digest in between.
	d.lock.Lock()
	if d.needsMerge {
		d.merge(internalCompressionFactor(d.compression))
	}
	d.valuesAtLocked(quantiles, result)
	d.lock.Unlock()
	return result, nil
}

func validateQuantiles(quantiles []float64) error {
	for i, q := range quantiles {
		if !(q >= 0 && q <= 1) {
			return errors.NewInvalidArgumentf("tdigest: quantile %v should be in [0, 1] range", q)
		}
		if i > 0 && q < quantiles[i-1] {
			return errors.NewInvalidArgument("tdigest: quantiles must be sorted in increasing order")
		}
	}
	return nil
}

func (d *TDigest) valuesAtLocked(quantiles, result []float64) {
	for i, q := range quantiles {
		result[i] = d.valueAtLocked(q)
	}
}

func (d *TDigest) valueAtLocked(quantile float64) float64 {
	n := d.centroidCount
	if n == 0 {
		return math.NaN()
	}
	means, weights := d.means, d.weights
	if n == 1 {
		return means[0]
	}

	totalWeight := d.totalWeight.Load()
	min, max := d.min.Load(), d.max.Load()

	// offset into the theoretical sequence of all values
	offset := quantile * totalWeight
	if offset < 1 {
		return min
	}
	if offset > totalWeight-1 {
		return max
	}

	// between bottom and first centroid
	if weights[0] > 1 && offset < weights[0]/2 {
		return min + interpolate(offset, 1, min, weights[0]/2, means[0])
	}

	// between last centroid and top. we interpolate back from the end, so the delta is negative
	if weights[n-1] > 1 && totalWeight-offset <= weights[n-1]/2 {
		return max + interpolate(totalWeight-offset, 1, max, weights[n-1]/2, means[n-1])
	}

	weightSoFar := weights[0] / 2
	for i := 0; i < n-1; i++ {
		delta := (weights[i] + weights[i+1]) / 2
		if weightSoFar+delta < offset {
			weightSoFar += delta
			continue
		}

		// single-sample cluster and the quantile falls within that cluster
		if weights[i] == 1 && offset-weightSoFar < weights[i]/2 {
			return means[i]
		}
		if weights[i+1] == 1 && offset-weightSoFar >= weights[i]/2 {
			return means[i+1]
		}

		// at most one of the two is a single sample. it is a point, not a span,
		// so its half of the weight is excluded from the interpolation
		if weights[i] == 1 {
			weightSoFar += weights[i] / 2
			delta = weights[i+1] / 2
		} else if weights[i+1] == 1 {
			delta = weights[i] / 2
		}
		return means[i] + interpolate(offset-weightSoFar, 0, means[i], delta, means[i+1])
	}

	// only reachable through rounding drift between totalWeight and the
	// centroid weights; the tail check above would have answered otherwise.
	return means[n-1]
}

// Reset empties the digest in place.
func (d *TDigest) Reset() {
	d.lock.Lock()
	d.centroidCount = 0
	d.needsMerge = false
	d.backwards = false
	d.totalWeight.Store(0)
	d.min.Store(math.Inf(1))
	d.max.Store(math.Inf(-1))
	d.lock.Unlock()
}

// Rescale divides every centroid weight by factor and drops centroids whose
// rescaled weight is below minWeight. If anything was dropped, min and max are
// recomputed from the surviving centroids.
func (d *TDigest) Rescale(factor, minWeight float64) error {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return errors.NewInvalidArgumentf("tdigest: rescale factor must be finite and > 0, got %v", factor)
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	newMin, newMax := math.Inf(1), math.Inf(-1)
	var total float64
	kept := 0
	for i := 0; i < d.centroidCount; i++ {
		weight := d.weights[i] / factor
		if weight < minWeight {
			continue
		}
		mean := d.means[i]
		d.means[kept] = mean
		d.weights[kept] = weight
		kept++
		total += weight
		newMin = math.Min(newMin, mean)
		newMax = math.Max(newMax, mean)
	}
	dropped := kept != d.centroidCount
	d.centroidCount = kept
	d.totalWeight.Store(total)
	if dropped {
		d.min.Store(newMin)
		d.max.Store(newMax)
	}
	return nil
}

// EstimatedInMemorySize returns the approximate number of bytes held by d.
func (d *TDigest) EstimatedInMemorySize() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	const f64 = int(unsafe.Sizeof(float64(0)))
	const i = int(unsafe.Sizeof(int(0)))
	return int(unsafe.Sizeof(*d)) +
		f64*(cap(d.means)+cap(d.weights)+cap(d.tempMeans)+cap(d.tempWeights)) +
		i*cap(d.indexes)
}

func (d *TDigest) forceMerge() {
	d.lock.Lock()
	d.merge(internalCompressionFactor(d.compression))
	d.lock.Unlock()
}

// merge sorts the centroids and folds neighbours together as long as the
// clusters respect the size bound for their quantile. Requires the write lock.
func (d *TDigest) merge(compression float64) {
	if d.centroidCount == 0 {
		return
	}

	d.initializeIndexes()
	means, weights := d.means, d.weights
	indexes := d.indexes[:d.centroidCount]
	sort.Slice(indexes, func(a, b int) bool {
		return means[indexes[a]] < means[indexes[b]]
	})
	if d.backwards {
		reverseInts(indexes)
	}

	if d.tempMeans == nil {
		d.tempMeans = make([]float64, initialCapacity)
		d.tempWeights = make([]float64, initialCapacity)
	}

	totalWeight := d.totalWeight.Load()
	centroidMean := means[indexes[0]]
	centroidWeight := weights[indexes[0]]

	lastCentroid := 0
	d.tempMeans[lastCentroid] = centroidMean
	d.tempWeights[lastCentroid] = centroidWeight

	minWeight := weights[0]
	for _, w := range weights[1:d.centroidCount] {
		if w < minWeight {
			minWeight = w
		}
	}

	var weightSoFar float64
	norm := normalizer(compression, totalWeight, minWeight)
	currentQuantileMaxClusterSize := maxRelativeClusterSize(0, norm)

	for _, index := range indexes[1:] {
		entryWeight := weights[index]
		entryMean := means[index]

		tentativeWeight := centroidWeight + entryWeight
		tentativeQuantile := math.Min((weightSoFar+tentativeWeight)/totalWeight, 1)

		maxClusterWeight := totalWeight * math.Min(currentQuantileMaxClusterSize, maxRelativeClusterSize(tentativeQuantile, norm))
		if tentativeWeight <= maxClusterWeight {
			// weighted average of the two centroids
			centroidMean = centroidMean + (entryMean-centroidMean)*entryWeight/tentativeWeight
			centroidWeight = tentativeWeight
		} else {
			lastCentroid++

			weightSoFar += centroidWeight
			currentQuantileMaxClusterSize = maxRelativeClusterSize(weightSoFar/totalWeight, norm)

			centroidWeight = entryWeight
			centroidMean = entryMean
		}

		d.ensureTempCapacity(lastCentroid)
		d.tempMeans[lastCentroid] = centroidMean
		d.tempWeights[lastCentroid] = centroidWeight
	}

	d.centroidCount = lastCentroid + 1
	if d.backwards {
		reverseFloats(d.tempMeans[:d.centroidCount])
		reverseFloats(d.tempWeights[:d.centroidCount])
	}
	d.backwards = !d.backwards

	copy(d.means, d.tempMeans[:d.centroidCount])
	copy(d.weights, d.tempWeights[:d.centroidCount])
	d.needsMerge = false
}

func (d *TDigest) ensureCapacity(size int) {
	if len(d.means) < size {
		means := make([]float64, size)
		weights := make([]float64, size)
		copy(means, d.means[:d.centroidCount])
		copy(weights, d.weights[:d.centroidCount])
		d.means = means
		d.weights = weights
	}
}

func (d *TDigest) ensureTempCapacity(capacity int) {
	if len(d.tempMeans) <= capacity {
		size := capacity + int(math.Ceil(float64(capacity)*0.5))
		means := make([]float64, size)
		weights := make([]float64, size)
		copy(means, d.tempMeans)
		copy(weights, d.tempWeights)
		d.tempMeans = means
		d.tempWeights = weights
	}
}

func (d *TDigest) initializeIndexes() {
	if len(d.indexes) != len(d.means) {
		d.indexes = make([]int, len(d.means))
	}
	for i := 0; i < d.centroidCount; i++ {
		d.indexes[i] = i
	}
}

// interpolate returns the delta over y0 at x on the line through (x0, y0), (x1, y1).
// The conversion stops the compiler from fusing the caller's addition into an FMA,
// which keeps results identical across architectures.
func interpolate(x, x0, y0, x1, y1 float64) float64 {
	return float64((x - x0) / (x1 - x0) * (y1 - y0))
}

func maxRelativeClusterSize(quantile, normalizer float64) float64 {
	return quantile * (1 - quantile) / normalizer
}

// normalizer scales the cluster size bound by the amount of data seen. The
// log term counts samples, so fractional weights are measured in units of
// the smallest centroid weight. The denominator is kept positive: a
// negative bound forbids every fold and the buffer can't be compacted.
func normalizer(compression, weight, minWeight float64) float64 {
	if minWeight > 0 && minWeight < 1 {
		weight /= minWeight
	}
	return compression / math.Max(4*math.Log(weight/compression)+24, minNormalizerDenominator)
}

const minNormalizerDenominator = 1

func internalCompressionFactor(compression float64) float64 {
	return 2 * compression
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseFloats(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
