package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/go-macaron/binding"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/distribution"
	"gopkg.in/macaron.v1"
)

// StatsGet asks for a single metric, optionally with extra quantiles.
type StatsGet struct {
	Quantiles []float64 `json:"q" form:"q"`
}

func (s StatsGet) Validate(ctx *macaron.Context, errs binding.Errors) binding.Errors {
	for _, q := range s.Quantiles {
		if !(q >= 0 && q <= 1) {
			errs = append(errs, binding.Error{
				FieldNames:     []string{"q"},
				Classification: "RangeError",
				Message:        "quantiles must be between 0 and 1",
			})
			return errs
		}
	}
	return errs
}

// StatsList is the snapshot of every metric that has one, keyed by name.
type StatsList map[string]interface{}

func (l StatsList) MarshalJSONFast(b []byte) ([]byte, error) {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	var err error
	b = append(b, '{')
	for i, name := range names {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendQuoteToASCII(b, name)
		b = append(b, ':')
		b, err = AppendValue(b, l[name])
		if err != nil {
			return b, err
		}
	}
	b = append(b, '}')
	return b, nil
}

func (l StatsList) MarshalJSON() ([]byte, error) {
	return l.MarshalJSONFast(nil)
}

type Quantile struct {
	Quantile float64
	Value    float64
}

// Stat is the snapshot of one metric plus any quantiles that were asked for.
type Stat struct {
	Name      string
	Snapshot  interface{}
	Quantiles []Quantile
}

func (s Stat) MarshalJSONFast(b []byte) ([]byte, error) {
	var err error
	b = append(b, `{"name":`...)
	b = strconv.AppendQuoteToASCII(b, s.Name)
	b = append(b, `,"snapshot":`...)
	b, err = AppendValue(b, s.Snapshot)
	if err != nil {
		return b, err
	}
	if len(s.Quantiles) > 0 {
		b = append(b, `,"quantiles":[`...)
		for i, q := range s.Quantiles {
			if i > 0 {
				b = append(b, ',')
			}
			b = append(b, `{"q":`...)
			b = appendFloat(b, q.Quantile)
			b = append(b, `,"value":`...)
			b = appendFloat(b, q.Value)
			b = append(b, '}')
		}
		b = append(b, ']')
	}
	b = append(b, '}')
	return b, nil
}

func (s Stat) MarshalJSON() ([]byte, error) {
	return s.MarshalJSONFast(nil)
}

// AppendValue appends the json encoding of a metric snapshot. Statistics of
// an empty distribution are NaN, which encode as null.
func AppendValue(b []byte, v interface{}) ([]byte, error) {
	switch s := v.(type) {
	case distribution.Snapshot:
		return appendFields(b,
			"count", s.Count, "total", s.Total,
			"p01", s.P01, "p05", s.P05, "p10", s.P10, "p25", s.P25, "p50", s.P50,
			"p75", s.P75, "p90", s.P90, "p95", s.P95, "p99", s.P99,
			"min", s.Min, "max", s.Max, "avg", s.Avg,
		), nil
	case distribution.TimeSnapshot:
		b = appendFields(b,
			"count", s.Count, "total", s.Total,
			"p50", s.P50, "p75", s.P75, "p90", s.P90, "p95", s.P95, "p99", s.P99,
			"min", s.Min, "max", s.Max, "avg", s.Avg,
		)
		b = b[:len(b)-1] // reopen the object for the unit
		b = append(b, `,"unit":`...)
		b = strconv.AppendQuoteToASCII(b, s.Unit)
		return append(b, '}'), nil
	case decay.CounterSnapshot:
		return appendFields(b, "count", s.Count, "rate", s.Rate), nil
	case float64:
		return appendFloat(b, s), nil
	}
	enc, err := json.Marshal(v)
	return append(b, enc...), err
}

// appendFields appends a json object of alternating keys and float values.
func appendFields(b []byte, kv ...interface{}) []byte {
	b = append(b, '{')
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendQuote(b, kv[i].(string))
		b = append(b, ':')
		b = appendFloat(b, kv[i+1].(float64))
	}
	return append(b, '}')
}

func appendFloat(b []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(b, "null"...)
	}
	return strconv.AppendFloat(b, f, 'f', -1, 64)
}
