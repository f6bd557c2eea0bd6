package distribution

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistribution(t *testing.T) {
	Convey("a non-decaying distribution with values 1..100", t, func() {
		d, err := NewWithClock(0, clock.NewMock())
		So(err, ShouldBeNil)
		for i := 1; i <= 100; i++ {
			So(d.Add(float64(i)), ShouldBeNil)
		}

		So(d.Count(), ShouldAlmostEqual, 100, 1e-9)
		So(d.Total(), ShouldEqual, 5050)
		So(d.Avg(), ShouldAlmostEqual, 50.5, 1e-9)
		So(d.Min(), ShouldEqual, 1)
		So(d.Max(), ShouldEqual, 100)

		median, err := d.Percentile(0.5)
		So(err, ShouldBeNil)
		So(median, ShouldAlmostEqual, 50.5, 1)

		_, err = d.Percentile(2)
		So(errors.IsInvalidArgument(err), ShouldBeTrue)

		Convey("percentiles cover 0.00 to 0.99 in order", func() {
			ps := d.Percentiles()
			So(len(ps), ShouldEqual, 100)
			So(ps[0], ShouldEqual, 1)
			for i := 1; i < len(ps); i++ {
				So(ps[i], ShouldBeGreaterThanOrEqualTo, ps[i-1])
			}
		})
		Convey("the snapshot agrees with the accessors", func() {
			s := d.Snapshot()
			So(s.Count, ShouldAlmostEqual, 100, 1e-9)
			So(s.Total, ShouldEqual, 5050)
			So(s.Min, ShouldEqual, 1)
			So(s.Max, ShouldEqual, 100)
			So(s.Avg, ShouldAlmostEqual, 50.5, 1e-9)
			So(s.P01, ShouldBeLessThanOrEqualTo, s.P05)
			So(s.P05, ShouldBeLessThanOrEqualTo, s.P10)
			So(s.P10, ShouldBeLessThanOrEqualTo, s.P25)
			So(s.P25, ShouldBeLessThanOrEqualTo, s.P50)
			So(s.P50, ShouldBeLessThanOrEqualTo, s.P75)
			So(s.P75, ShouldBeLessThanOrEqualTo, s.P90)
			So(s.P90, ShouldBeLessThanOrEqualTo, s.P95)
			So(s.P95, ShouldBeLessThanOrEqualTo, s.P99)
			So(s.P99, ShouldAlmostEqual, 99.5, 1)
		})
		Convey("invalid input changes nothing", func() {
			So(errors.IsInvalidArgument(d.Add(math.NaN())), ShouldBeTrue)
			So(errors.IsInvalidArgument(d.AddCount(1, 0)), ShouldBeTrue)
			So(errors.IsInvalidArgument(d.Add(math.Inf(1))), ShouldBeTrue)
			So(d.Count(), ShouldAlmostEqual, 100, 1e-9)
			So(d.Total(), ShouldEqual, 5050)
		})
		Convey("reset empties it", func() {
			d.Reset()
			s := d.Snapshot()
			So(s.Count, ShouldEqual, 0)
			So(s.Total, ShouldEqual, 0)
			So(math.IsNaN(s.Avg), ShouldBeTrue)
			So(math.IsNaN(s.Min), ShouldBeTrue)
			So(math.IsNaN(s.P50), ShouldBeTrue)
		})
		Convey("the exported digest is a copy", func() {
			digest := d.Digest()
			d.Add(1000)
			So(digest.Count(), ShouldAlmostEqual, 100, 1e-9)
			So(digest.Max(), ShouldEqual, 100)
		})
	})
}

func TestDistributionAddCount(t *testing.T) {
	d, _ := NewWithClock(0, clock.NewMock())
	d.AddCount(10, 5)
	d.AddCount(20, 5)
	if c := d.Count(); math.Abs(c-10) > 1e-9 {
		t.Fatalf("expected count 10, got %v", c)
	}
	if d.Total() != 150 {
		t.Fatalf("expected total 150, got %v", d.Total())
	}
	if a := d.Avg(); math.Abs(a-15) > 1e-9 {
		t.Fatalf("expected avg 15, got %v", a)
	}
}

func TestDistributionAddCountOverflow(t *testing.T) {
	d, _ := NewWithClock(0, clock.NewMock())
	if err := d.AddCount(1, 2); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		value float64
		count int64
	}{
		{1e308, 10},
		{-1e308, 10},
		{math.Inf(1), 1},
		{math.NaN(), 3},
	}
	for _, c := range cases {
		if err := d.AddCount(c.value, c.count); !errors.IsInvalidArgument(err) {
			t.Fatalf("AddCount(%v, %d): expected InvalidArgument, got %v", c.value, c.count, err)
		}
	}
	// rejected samples leave count and total in agreement
	if c := d.Count(); math.Abs(c-2) > 1e-9 {
		t.Fatalf("expected count 2, got %v", c)
	}
	if d.Total() != 2 {
		t.Fatalf("expected total 2, got %v", d.Total())
	}
}

func TestDistributionDecay(t *testing.T) {
	clk := clock.NewMock()
	alpha, _ := decay.ComputeAlpha(0.5, 10)
	d, err := NewWithClock(alpha, clk)
	if err != nil {
		t.Fatal(err)
	}
	d.Add(4)
	clk.Add(10 * time.Second)
	d.Add(8)

	if c := d.Count(); math.Abs(c-1.5) > 1e-9 {
		t.Fatalf("expected count 1.5, got %v", c)
	}
	if total := d.Total(); math.Abs(total-10) > 1e-9 {
		t.Fatalf("expected total 10, got %v", total)
	}
	if _, err := New(1); !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument for alpha 1, got %v", err)
	}
}
