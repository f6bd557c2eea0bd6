package digestio

import (
	"bytes"
	"io"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newDigest(t *testing.T, clk clock.Clock, alpha float64, values ...float64) *decay.Digest {
	d, err := decay.NewDigestWithClock(100, alpha, clk)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		if err := d.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestStreamRoundTrip(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(500 * time.Second)

	var digests []*decay.Digest
	for i := 0; i < 4; i++ {
		values := make([]float64, 0, 1000)
		for j := 0; j < 1000; j++ {
			values = append(values, float64(i*1000+j))
		}
		digests = append(digests, newDigest(t, clk, decay.OneMinute(), values...))
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, d := range digests {
		if err := w.Write(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := NewReader(&buf, clk).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(digests) {
		t.Fatalf("expected %d digests, got %d", len(digests), len(got))
	}
	qs := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range digests {
		exp, _ := digests[i].ValuesAt(qs...)
		act, _ := got[i].ValuesAt(qs...)
		if diff := cmp.Diff(exp, act); diff != "" {
			t.Fatalf("digest %d changed (-exp +got):\n%s", i, diff)
		}
		if got[i].Landmark() != digests[i].Landmark() {
			t.Fatalf("digest %d: landmark %d, expected %d", i, got[i].Landmark(), digests[i].Landmark())
		}
	}
}

func TestReader(t *testing.T) {
	Convey("reading streams", t, func() {
		clk := clock.NewMock()

		Convey("an empty stream ends right away", func() {
			var buf bytes.Buffer
			So(NewWriter(&buf).Close(), ShouldBeNil)
			_, err := NewReader(&buf, clk).Next()
			So(err, ShouldEqual, io.EOF)
		})

		Convey("garbage is rejected", func() {
			_, err := NewReader(bytes.NewReader([]byte("definitely not snappy")), clk).Next()
			So(err, ShouldNotBeNil)
			So(err, ShouldNotEqual, io.EOF)
		})

		Convey("an envelope holding a broken digest is rejected", func() {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			So(w.WriteEnvelope(&decay.DigestEnvelope{Alpha: 0, Digest: []byte{1, 2, 3}}), ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			_, err := NewReader(&buf, clk).Next()
			So(errors.IsInvalidArgument(err), ShouldBeTrue)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("merging digests with different landmarks", t, func() {
		clk := clock.NewMock()
		alpha := decay.OneMinute()
		older := newDigest(t, clk, alpha, 1, 2)
		clk.Add(60 * time.Second)
		newer := newDigest(t, clk, alpha, 3)

		merged, err := Merge(older, newer)
		So(err, ShouldBeNil)
		So(merged.Landmark(), ShouldEqual, 60)
		So(merged.Count(), ShouldAlmostEqual, 2*math.Exp(-1)+1, 1e-9)
		So(merged.Max(), ShouldEqual, 3)
		So(merged.Min(), ShouldEqual, 1)

		Convey("leaves the inputs alone", func() {
			So(older.Landmark(), ShouldEqual, 0)
			So(older.Count(), ShouldAlmostEqual, 2*math.Exp(-1), 1e-9)
		})
	})

	Convey("merging needs input", t, func() {
		_, err := Merge()
		So(errors.IsInvalidArgument(err), ShouldBeTrue)
	})

	Convey("merging needs matching alphas", t, func() {
		clk := clock.NewMock()
		_, err := Merge(newDigest(t, clk, 0, 1), newDigest(t, clk, decay.OneMinute(), 1))
		So(errors.IsInvalidArgument(err), ShouldBeTrue)
	})
}
