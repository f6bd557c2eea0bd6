package tdigest

import (
	"encoding/binary"
	"math"

	"github.com/grafana/decaystats/errors"
)

const formatTag = 0

// tag, min, max, compression, totalWeight, centroidCount
const headerSize = 1 + 8 + 8 + 8 + 8 + 4

// SerializedSize returns the number of bytes Serialize would produce right now.
// Serialize compresses first, so the actual output may be smaller.
func (d *TDigest) SerializedSize() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.serializedSizeLocked()
}

func (d *TDigest) serializedSizeLocked() int {
	return headerSize + 16*d.centroidCount
}

// Serialize compresses the digest and encodes it in a stable little-endian
// binary layout:
//
//	tag u8 (0), min f64, max f64, compression f64, totalWeight f64,
//	centroidCount u32, means f64 * n, weights f64 * n
func (d *TDigest) Serialize() []byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.merge(d.compression)
	return d.serializeLocked()
}

func (d *TDigest) serializeLocked() []byte {
	n := d.centroidCount
	buf := make([]byte, d.serializedSizeLocked())
	buf[0] = formatTag
	le := binary.LittleEndian
	le.PutUint64(buf[1:], math.Float64bits(d.min.Load()))
	le.PutUint64(buf[9:], math.Float64bits(d.max.Load()))
	le.PutUint64(buf[17:], math.Float64bits(d.compression))
	le.PutUint64(buf[25:], math.Float64bits(d.totalWeight.Load()))
	le.PutUint32(buf[33:], uint32(n))

	pos := headerSize
	for _, m := range d.means[:n] {
		le.PutUint64(buf[pos:], math.Float64bits(m))
		pos += 8
	}
	for _, w := range d.weights[:n] {
		le.PutUint64(buf[pos:], math.Float64bits(w))
		pos += 8
	}
	return buf
}

// Deserialize decodes a digest produced by Serialize.
func Deserialize(buf []byte) (*TDigest, error) {
	if len(buf) < headerSize {
		return nil, errors.NewInvalidArgumentf("tdigest: serialized digest too short: %d bytes", len(buf))
	}
	if buf[0] != formatTag {
		return nil, errors.NewInvalidArgumentf("tdigest: unknown format tag %d", buf[0])
	}
	le := binary.LittleEndian
	min := math.Float64frombits(le.Uint64(buf[1:]))
	max := math.Float64frombits(le.Uint64(buf[9:]))
	compression := math.Float64frombits(le.Uint64(buf[17:]))
	totalWeight := math.Float64frombits(le.Uint64(buf[25:]))
	n := int(le.Uint32(buf[33:]))

	if err := validateCompression(compression); err != nil {
		return nil, err
	}
	if len(buf) != headerSize+16*n {
		return nil, errors.NewInvalidArgumentf("tdigest: expected %d bytes for %d centroids, got %d", headerSize+16*n, n, len(buf))
	}

	means := make([]float64, n)
	weights := make([]float64, n)
	pos := headerSize
	for i := range means {
		means[i] = math.Float64frombits(le.Uint64(buf[pos:]))
		pos += 8
	}
	for i := range weights {
		weights[i] = math.Float64frombits(le.Uint64(buf[pos:]))
		pos += 8
	}
	for i := 0; i < n; i++ {
		if err := validateSample(means[i], weights[i]); err != nil {
			return nil, errors.NewInvalidArgumentf("tdigest: corrupt centroid %d: %s", i, err)
		}
	}
	if n == 0 {
		if totalWeight != 0 {
			return nil, errors.NewInvalidArgumentf("tdigest: corrupt header: total weight %v without centroids", totalWeight)
		}
		// an empty digest has no extremes
		min, max = math.Inf(1), math.Inf(-1)
	} else if err := validateHeader(min, max, totalWeight); err != nil {
		return nil, err
	}
	return newDigest(compression, min, max, totalWeight, n, means, weights), nil
}

func validateHeader(min, max, totalWeight float64) error {
	switch {
	case math.IsNaN(min) || math.IsInf(min, 0):
		return errors.NewInvalidArgumentf("tdigest: corrupt header: min %v", min)
	case math.IsNaN(max) || math.IsInf(max, 0):
		return errors.NewInvalidArgumentf("tdigest: corrupt header: max %v", max)
	case min > max:
		return errors.NewInvalidArgumentf("tdigest: corrupt header: min %v > max %v", min, max)
	case !(totalWeight > 0) || math.IsInf(totalWeight, 0):
		return errors.NewInvalidArgumentf("tdigest: corrupt header: total weight %v", totalWeight)
	}
	return nil
}
