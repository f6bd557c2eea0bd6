package decay

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/errors"
	"github.com/grafana/decaystats/tdigest"
)

//go:generate msgp

// DigestEnvelope is the wire form of a Digest: the serialized t-digest plus
// what is needed to interpret its weights.
type DigestEnvelope struct {
	Alpha    float64 `msg:"alpha"`
	Landmark int64   `msg:"landmark"`
	Digest   []byte  `msg:"digest"`
}

// CounterEnvelope is the wire form of a Counter.
type CounterEnvelope struct {
	Alpha    float64 `msg:"alpha"`
	Landmark int64   `msg:"landmark"`
	Count    float64 `msg:"count"`
}

// Envelope serializes d. Pending values are compressed first.
func (d *Digest) Envelope() DigestEnvelope {
	return DigestEnvelope{
		Alpha:    d.alpha,
		Landmark: d.landmark,
		Digest:   d.digest.Serialize(),
	}
}

// DigestFromEnvelope decodes a Digest that will decay according to clk.
func DigestFromEnvelope(env DigestEnvelope, clk clock.Clock) (*Digest, error) {
	if err := ValidateAlpha(env.Alpha); err != nil {
		return nil, err
	}
	digest, err := tdigest.Deserialize(env.Digest)
	if err != nil {
		return nil, err
	}
	return &Digest{
		digest:   digest,
		alpha:    env.Alpha,
		landmark: env.Landmark,
		clock:    clk,
	}, nil
}

func (c *Counter) Envelope() CounterEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterEnvelope{
		Alpha:    c.alpha,
		Landmark: c.landmark,
		Count:    c.count,
	}
}

func CounterFromEnvelope(env CounterEnvelope, clk clock.Clock) (*Counter, error) {
	if err := ValidateAlpha(env.Alpha); err != nil {
		return nil, err
	}
	if math.IsNaN(env.Count) || math.IsInf(env.Count, 0) {
		return nil, errors.NewInvalidArgument("decay: counter envelope holds a non-finite count")
	}
	return &Counter{
		id:       lastCounterID.Inc(),
		alpha:    env.Alpha,
		clock:    clk,
		landmark: env.Landmark,
		count:    env.Count,
	}, nil
}
