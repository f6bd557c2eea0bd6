package tdigest

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grafana/decaystats/errors"
	. "github.com/smartystreets/goconvey/convey"
)

var roundTripQuantiles = []float64{0, 0.001, 0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 0.999, 1}

func TestSerializeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	cases := []struct {
		name   string
		values int
	}{
		{"empty", 0},
		{"single", 1},
		{"few", 7},
		{"many", 50000},
	}
	for _, c := range cases {
		d := New()
		for i := 0; i < c.values; i++ {
			mustAddWeighted(t, d, r.ExpFloat64()*10, 1+float64(r.Intn(3)))
		}
		buf := d.Serialize()
		if len(buf) != d.SerializedSize() {
			t.Fatalf("%s: serialized %d bytes, but SerializedSize says %d", c.name, len(buf), d.SerializedSize())
		}

		got, err := Deserialize(buf)
		if err != nil {
			t.Fatalf("%s: deserialize failed: %s", c.name, err)
		}
		exp, _ := d.ValuesAt(roundTripQuantiles...)
		act, _ := got.ValuesAt(roundTripQuantiles...)
		if diff := cmp.Diff(exp, act, cmp.Comparer(sameFloat)); diff != "" {
			t.Fatalf("%s: quantiles differ after round trip (-exp +got):\n%s", c.name, diff)
		}
		if got.Count() != d.Count() || got.Compression() != d.Compression() || got.CentroidCount() != d.CentroidCount() {
			t.Fatalf("%s: header mismatch: count %v/%v compression %v/%v centroids %d/%d", c.name,
				got.Count(), d.Count(), got.Compression(), d.Compression(), got.CentroidCount(), d.CentroidCount())
		}
		if !sameFloat(got.Min(), d.Min()) || !sameFloat(got.Max(), d.Max()) {
			t.Fatalf("%s: min/max mismatch", c.name)
		}
	}
}

// sameFloat is == but with NaN equal to itself
func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func TestSerializeLayout(t *testing.T) {
	Convey("a serialized digest with two centroids", t, func() {
		d := New()
		mustAddWeighted(t, d, 1.5, 3)
		mustAddWeighted(t, d, 2.5, 4)
		buf := d.Serialize()
		le := binary.LittleEndian

		So(len(buf), ShouldEqual, headerSize+2*16)
		So(buf[0], ShouldEqual, formatTag)
		So(math.Float64frombits(le.Uint64(buf[1:])), ShouldEqual, 1.5)
		So(math.Float64frombits(le.Uint64(buf[9:])), ShouldEqual, 2.5)
		So(math.Float64frombits(le.Uint64(buf[17:])), ShouldEqual, 100)
		So(math.Float64frombits(le.Uint64(buf[25:])), ShouldEqual, 7)
		So(le.Uint32(buf[33:]), ShouldEqual, 2)
		So(math.Float64frombits(le.Uint64(buf[37:])), ShouldEqual, 1.5)
		So(math.Float64frombits(le.Uint64(buf[45:])), ShouldEqual, 2.5)
		So(math.Float64frombits(le.Uint64(buf[53:])), ShouldEqual, 3)
		So(math.Float64frombits(le.Uint64(buf[61:])), ShouldEqual, 4)

		Convey("corrupted buffers are rejected", func() {
			badTag := append([]byte(nil), buf...)
			badTag[0] = 1
			_, err := Deserialize(badTag)
			So(errors.IsInvalidArgument(err), ShouldBeTrue)

			_, err = Deserialize(buf[:len(buf)-1])
			So(errors.IsInvalidArgument(err), ShouldBeTrue)

			_, err = Deserialize(append(append([]byte(nil), buf...), 0))
			So(errors.IsInvalidArgument(err), ShouldBeTrue)

			_, err = Deserialize(buf[:10])
			So(errors.IsInvalidArgument(err), ShouldBeTrue)

			badCompression := append([]byte(nil), buf...)
			le.PutUint64(badCompression[17:], math.Float64bits(5))
			_, err = Deserialize(badCompression)
			So(errors.IsInvalidArgument(err), ShouldBeTrue)

			badWeight := append([]byte(nil), buf...)
			le.PutUint64(badWeight[53:], math.Float64bits(-1))
			_, err = Deserialize(badWeight)
			So(errors.IsInvalidArgument(err), ShouldBeTrue)
		})

		Convey("headers with impossible extremes or totals are rejected", func() {
			headers := []struct {
				offset int
				value  float64
			}{
				{1, math.NaN()},
				{1, math.Inf(-1)},
				{9, math.NaN()},
				{9, math.Inf(1)},
				{1, 3}, // min > max
				{9, 1}, // max < min
				{25, math.NaN()},
				{25, math.Inf(1)},
				{25, 0},
				{25, -7},
			}
			for _, h := range headers {
				bad := append([]byte(nil), buf...)
				le.PutUint64(bad[h.offset:], math.Float64bits(h.value))
				_, err := Deserialize(bad)
				So(errors.IsInvalidArgument(err), ShouldBeTrue)
			}
		})

		Convey("an empty digest keeps its infinite extremes", func() {
			empty := New().Serialize()
			got, err := Deserialize(empty)
			So(err, ShouldBeNil)
			So(got.Count(), ShouldEqual, 0)
			So(got.Add(4), ShouldBeNil)
			So(got.Min(), ShouldEqual, 4)
			So(got.Max(), ShouldEqual, 4)

			le.PutUint64(empty[25:], math.Float64bits(3))
			_, err = Deserialize(empty)
			So(errors.IsInvalidArgument(err), ShouldBeTrue)
		})

		Convey("a deserialized digest keeps accepting values", func() {
			got, err := Deserialize(buf)
			So(err, ShouldBeNil)
			So(got.Add(10), ShouldBeNil)
			So(got.Count(), ShouldEqual, 8)
			So(got.Max(), ShouldEqual, 10)
		})
	})
}
