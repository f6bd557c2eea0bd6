package decay

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeight(t *testing.T) {
	if w := Weight(0.5, 10, 10); w != 1 {
		t.Fatalf("expected weight 1 at the landmark, got %v", w)
	}
	if w := Weight(0, 1000, 0); w != 1 {
		t.Fatalf("expected weight 1 without decay, got %v", w)
	}
	if w := Weight(math.Ln2, 1, 0); math.Abs(w-2) > 1e-12 {
		t.Fatalf("expected weight 2, got %v", w)
	}
	if OneMinute() != 1.0/60 || FiveMinutes() != 1.0/300 || FifteenMinutes() != 1.0/900 {
		t.Fatalf("unexpected standard alphas")
	}
}

func TestComputeAlpha(t *testing.T) {
	alpha, err := ComputeAlpha(0.5, 60)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(alpha-math.Ln2/60) > 1e-15 {
		t.Fatalf("expected %v, got %v", math.Ln2/60, alpha)
	}
	// a sample aged 60s is now worth half a fresh one
	if w := 1 / Weight(alpha, 60, 0); math.Abs(w-0.5) > 1e-12 {
		t.Fatalf("expected half weight, got %v", w)
	}

	bad := []struct {
		target float64
		age    int64
	}{
		{0.5, 0},
		{0.5, -1},
		{0, 10},
		{1, 10},
		{math.NaN(), 10},
	}
	for _, b := range bad {
		if _, err := ComputeAlpha(b.target, b.age); !errors.IsInvalidArgument(err) {
			t.Fatalf("ComputeAlpha(%v, %d): expected InvalidArgument, got %v", b.target, b.age, err)
		}
	}
}

func TestValidateAlpha(t *testing.T) {
	cases := []struct {
		alpha float64
		ok    bool
	}{
		{0, true},
		{OneMinute(), true},
		{0.999, true},
		{1, false},
		{-0.1, false},
		{math.NaN(), false},
	}
	for _, c := range cases {
		err := ValidateAlpha(c.alpha)
		if c.ok != (err == nil) {
			t.Fatalf("alpha %v: expected ok=%t, got %v", c.alpha, c.ok, err)
		}
	}
}

func TestDigestWithoutDecay(t *testing.T) {
	Convey("a non-decaying digest", t, func() {
		clk := clock.NewMock()
		d, err := NewDigestWithClock(100, 0, clk)
		So(err, ShouldBeNil)
		for i := 1; i <= 1000; i++ {
			So(d.Add(float64(i)), ShouldBeNil)
		}
		So(d.Count(), ShouldAlmostEqual, 1000, 1e-9)

		Convey("does not lose weight as time passes", func() {
			clk.Add(time.Hour)
			So(d.Add(0), ShouldBeNil)
			So(d.Count(), ShouldAlmostEqual, 1001, 1e-9)
			So(d.Min(), ShouldEqual, 0)
			So(d.Max(), ShouldEqual, 1000)
			median, err := d.ValueAt(0.5)
			So(err, ShouldBeNil)
			So(median, ShouldAlmostEqual, 500, 5)
		})
	})
}

func TestDigestDecay(t *testing.T) {
	Convey("a digest with a 10 second half-life", t, func() {
		clk := clock.NewMock()
		alpha, _ := ComputeAlpha(0.5, 10)
		d, err := NewDigestWithClock(100, alpha, clk)
		So(err, ShouldBeNil)
		So(d.Add(1), ShouldBeNil)

		Convey("halves its count every 10 seconds", func() {
			clk.Add(10 * time.Second)
			So(d.Count(), ShouldAlmostEqual, 0.5, 1e-9)
			clk.Add(10 * time.Second)
			So(d.Count(), ShouldAlmostEqual, 0.25, 1e-9)
		})
		Convey("rescales its landmark when a value arrives after 50 seconds", func() {
			clk.Add(60 * time.Second)
			So(d.Add(2), ShouldBeNil)
			So(d.Landmark(), ShouldEqual, 60)
			So(d.Count(), ShouldAlmostEqual, 1+1.0/64, 1e-9)
		})
		Convey("forgets everything eventually", func() {
			clk.Add(1000 * time.Second)
			So(d.Count(), ShouldEqual, 0)
			So(math.IsNaN(d.Min()), ShouldBeTrue)
			So(math.IsNaN(d.Max()), ShouldBeTrue)
			values, err := d.ValuesAt(0, 0.5, 1)
			So(err, ShouldBeNil)
			for _, v := range values {
				So(math.IsNaN(v), ShouldBeTrue)
			}
		})
	})

	Convey("a fast decaying digest drops stale centroids on rescale", t, func() {
		clk := clock.NewMock()
		d, err := NewDigestWithClock(100, math.Ln2, clk)
		So(err, ShouldBeNil)
		So(d.Add(1), ShouldBeNil)
		clk.Add(30 * time.Second)
		So(d.Add(2), ShouldBeNil)
		clk.Add(30 * time.Second)
		So(d.Add(3), ShouldBeNil)

		So(d.Landmark(), ShouldEqual, 60)
		So(d.CentroidCount(), ShouldEqual, 1)
		So(d.Min(), ShouldEqual, 3)
		So(d.Max(), ShouldEqual, 3)
		So(d.Count(), ShouldAlmostEqual, 1, 1e-9)
	})
}

func TestDigestRescaleTo(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(100 * time.Second)
	d, _ := NewDigestWithClock(100, 0.01, clk)
	d.Add(5)

	d.RescaleTo(50)
	if d.Landmark() != 100 {
		t.Fatalf("landmark moved backwards to %d", d.Landmark())
	}
	d.RescaleTo(120)
	if d.Landmark() != 120 {
		t.Fatalf("expected landmark 120, got %d", d.Landmark())
	}
	// rescaling does not change the decayed count as of now
	if c := d.Count(); math.Abs(c-1) > 1e-9 {
		t.Fatalf("expected count 1, got %v", c)
	}
	// an absurd jump just empties it
	d.RescaleTo(math.MaxInt64 / 2)
	if d.Count() != 0 {
		t.Fatalf("expected empty digest, got count %v", d.Count())
	}
}

func TestDigestRejectsInvalidInput(t *testing.T) {
	Convey("creating digests", t, func() {
		_, err := NewDigest(100, 1)
		So(errors.IsInvalidArgument(err), ShouldBeTrue)
		_, err = NewDigest(100, -0.5)
		So(errors.IsInvalidArgument(err), ShouldBeTrue)
		_, err = NewDigest(5, 0)
		So(errors.IsInvalidArgument(err), ShouldBeTrue)
	})
	Convey("adding to a digest", t, func() {
		clk := clock.NewMock()
		d, _ := NewDigestWithClock(100, OneMinute(), clk)
		So(d.Add(1), ShouldBeNil)
		clk.Add(55 * time.Second)
		So(errors.IsInvalidArgument(d.Add(math.NaN())), ShouldBeTrue)
		So(errors.IsInvalidArgument(d.AddWeighted(1, 0)), ShouldBeTrue)
		So(errors.IsInvalidArgument(d.AddWeighted(1, math.Inf(1))), ShouldBeTrue)
		// nothing happened, not even a rescale
		So(d.Landmark(), ShouldEqual, 0)
	})
}

func TestDigestTinyWeights(t *testing.T) {
	clk := clock.NewMock()
	d, err := NewDigestWithClock(100, 0, clk)
	if err != nil {
		t.Fatal(err)
	}
	// stored as 1e-4 each, far below a unit weight
	for i := 0; i < 5000; i++ {
		if err := d.AddWeighted(float64(i), 1e-9); err != nil {
			t.Fatalf("add %d: %s", i, err)
		}
	}
	if stored := d.digest.Count(); math.Abs(stored-0.5) > 1e-9 {
		t.Fatalf("expected stored weight 0.5, got %v", stored)
	}
	// 5e-6 samples is below the zero weight threshold
	if c := d.Count(); c != 0 {
		t.Fatalf("expected count 0, got %v", c)
	}
	if d.CentroidCount() > 6*(2*100+10) {
		t.Fatalf("too many centroids: %d", d.CentroidCount())
	}
}

func TestDigestMerge(t *testing.T) {
	Convey("given two decaying digests created at different times", t, func() {
		clk := clock.NewMock()
		a, _ := NewDigestWithClock(100, OneMinute(), clk)
		a.Add(1)
		a.Add(2)
		clk.Add(10 * time.Second)
		b, _ := NewDigestWithClock(100, OneMinute(), clk)
		b.Add(3)

		Convey("merging fails until their landmarks are aligned", func() {
			So(errors.IsInvalidArgument(a.Merge(b)), ShouldBeTrue)

			a.RescaleTo(b.Landmark())
			So(a.Merge(b), ShouldBeNil)
			expected := 2*math.Exp(-OneMinute()*10) + 1
			So(a.Count(), ShouldAlmostEqual, expected, 1e-9)
			So(a.Min(), ShouldEqual, 1)
			So(a.Max(), ShouldEqual, 3)
			So(b.Count(), ShouldAlmostEqual, 1, 1e-9)
		})
		Convey("digests with different alphas never merge", func() {
			c, _ := NewDigestWithClock(100, FiveMinutes(), clk)
			So(errors.IsInvalidArgument(b.Merge(c)), ShouldBeTrue)
		})
	})
	Convey("non-decaying digests merge regardless of landmark", t, func() {
		clk := clock.NewMock()
		a, _ := NewDigestWithClock(100, 0, clk)
		a.Add(1)
		clk.Add(time.Hour)
		b, _ := NewDigestWithClock(100, 0, clk)
		b.Add(2)
		So(a.Merge(b), ShouldBeNil)
		So(a.Count(), ShouldAlmostEqual, 2, 1e-9)
	})
}

func TestDigestDuplicateAndReset(t *testing.T) {
	clk := clock.NewMock()
	d, _ := NewDigestWithClock(100, OneMinute(), clk)
	d.Add(1)
	dup := d.Duplicate()
	d.Add(2)
	if c := dup.Count(); math.Abs(c-1) > 1e-9 {
		t.Fatalf("duplicate saw later writes: count %v", c)
	}
	clk.Add(70 * time.Second)
	d.Reset()
	if d.Count() != 0 || d.Landmark() != 70 {
		t.Fatalf("expected empty digest at landmark 70, got count %v landmark %d", d.Count(), d.Landmark())
	}
}

func TestCounter(t *testing.T) {
	Convey("a non-decaying counter", t, func() {
		clk := clock.NewMock()
		c, err := NewCounterWithClock(0, clk)
		So(err, ShouldBeNil)
		So(c.Add(1), ShouldBeNil)
		So(c.Add(2), ShouldBeNil)
		clk.Add(time.Hour)
		So(c.Count(), ShouldEqual, 3)
		So(c.Rate(), ShouldEqual, 0)
		So(errors.IsInvalidArgument(c.Add(math.NaN())), ShouldBeTrue)
		So(errors.IsInvalidArgument(c.Add(math.Inf(-1))), ShouldBeTrue)
		So(c.Count(), ShouldEqual, 3)

		c.Reset()
		So(c.Snapshot(), ShouldResemble, CounterSnapshot{Count: 0, Rate: 0})
	})
	Convey("a counter with a one minute half-life fed once per second", t, func() {
		clk := clock.NewMock()
		alpha, _ := ComputeAlpha(0.5, 60)
		c, _ := NewCounterWithClock(alpha, clk)
		for i := 0; i < 600; i++ {
			So(c.Add(1), ShouldBeNil)
			clk.Add(time.Second)
		}
		So(c.Rate(), ShouldAlmostEqual, 1, 0.05)

		Convey("decays towards zero once the input stops", func() {
			prev := c.Rate()
			for i := 0; i < 100; i++ {
				clk.Add(100 * time.Second)
				rate := c.Rate()
				So(rate, ShouldBeGreaterThanOrEqualTo, 0)
				So(rate, ShouldBeLessThan, prev)
				prev = rate
			}
			So(prev, ShouldBeLessThan, 1e-10)
		})
	})
}

func TestCounterMerge(t *testing.T) {
	Convey("given counters with different landmarks", t, func() {
		clk := clock.NewMock()
		alpha := OneMinute()
		older, _ := NewCounterWithClock(alpha, clk)
		older.Add(10)
		clk.Add(100 * time.Second)
		newer, _ := NewCounterWithClock(alpha, clk)
		newer.Add(5)

		expected := 10*math.Exp(-alpha*100) + 5

		Convey("merging the newer into the older", func() {
			dst := older.Duplicate()
			So(dst.Merge(newer), ShouldBeNil)
			So(dst.Count(), ShouldAlmostEqual, expected, 1e-9)
			So(newer.Count(), ShouldAlmostEqual, 5, 1e-9)
		})
		Convey("merging the older into the newer", func() {
			dst := newer.Duplicate()
			So(dst.Merge(older), ShouldBeNil)
			So(dst.Count(), ShouldAlmostEqual, expected, 1e-9)
		})
		Convey("merging a counter into itself doubles it", func() {
			So(newer.Merge(newer), ShouldBeNil)
			So(newer.Count(), ShouldAlmostEqual, 10, 1e-9)
		})
		Convey("counters with different alphas never merge", func() {
			other, _ := NewCounterWithClock(FiveMinutes(), clk)
			So(errors.IsInvalidArgument(newer.Merge(other)), ShouldBeTrue)
		})
	})
}
