package cmd

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/digestio"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseQuantiles(t *testing.T) {
	cases := []struct {
		in     []string
		expErr bool
		exp    []float64
	}{
		{[]string{"0.5", "0.99"}, false, []float64{0.5, 0.99}},
		{[]string{"0", "1"}, false, []float64{0, 1}},
		{[]string{"1.5"}, true, nil},
		{[]string{"-0.1"}, true, nil},
		{[]string{"p99"}, true, nil},
	}
	for i, c := range cases {
		got, err := parseQuantiles(c.in)
		if (err != nil) != c.expErr {
			t.Fatalf("case %d: expected error %t, got %v", i, c.expErr, err)
		}
		if c.expErr {
			continue
		}
		if len(got) != len(c.exp) {
			t.Fatalf("case %d: expected %v, got %v", i, c.exp, got)
		}
		for j := range got {
			if got[j] != c.exp[j] {
				t.Fatalf("case %d: expected %v, got %v", i, c.exp, got)
			}
		}
	}
}

func TestMergeAndInspect(t *testing.T) {
	Convey("merging digests with different landmarks", t, func() {
		clk := clock.NewMock()
		clk.Add(1000 * time.Second)
		a, _ := decay.NewDigestWithClock(100, 0, clk)
		b, _ := decay.NewDigestWithClock(100, 0, clk)
		for i := 1; i <= 50; i++ {
			So(a.Add(float64(i)), ShouldBeNil)
			So(b.Add(float64(i+50)), ShouldBeNil)
		}

		var buf bytes.Buffer
		merged, err := mergeTo(&buf, []*decay.Digest{a, b})
		So(err, ShouldBeNil)
		So(merged.Count(), ShouldEqual, 100)

		Convey("writes a stream holding the single merged digest", func() {
			digests, err := digestio.NewReader(&buf, clk).ReadAll()
			So(err, ShouldBeNil)
			So(digests, ShouldHaveLength, 1)
			So(digests[0].Count(), ShouldEqual, 100)
			So(digests[0].Min(), ShouldEqual, 1)
			So(digests[0].Max(), ShouldEqual, 100)

			Convey("which inspect prints as one row", func() {
				var out bytes.Buffer
				So(printDigests(&out, "merged", digests, []float64{0, 1}), ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldContainSubstring, "q0")
				So(lines[0], ShouldContainSubstring, "q1")
				fields := strings.Fields(lines[1])
				So(fields[0], ShouldEqual, "merged")
				So(fields[5], ShouldEqual, "100")
				So(fields[len(fields)-2], ShouldEqual, "1")
				So(fields[len(fields)-1], ShouldEqual, "100")
			})
		})
	})
	Convey("merging nothing fails", t, func() {
		var buf bytes.Buffer
		_, err := mergeTo(&buf, nil)
		So(err, ShouldNotBeNil)
		So(buf.Len(), ShouldEqual, 0)
	})
}

func TestBenchAdd(t *testing.T) {
	b, err := newBench(time.Millisecond, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 1000; i++ {
		b.add(b.refs[0], time.Duration(i)*time.Millisecond)
	}
	b.dist.ForceMerge()
	ref, count := b.reference()
	if count != 1000 {
		t.Fatalf("expected 1000 samples, got %d", count)
	}
	if got := b.dist.Count(); got != 1000 {
		t.Fatalf("expected count 1000, got %f", got)
	}
	if got := b.dist.Max(); got != 1000 {
		t.Fatalf("expected max 1000ms, got %f", got)
	}
	p50, err := b.dist.Percentile(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if d := relDiff(p50, ref.Quantile(0.5)); d > 0.02 {
		t.Fatalf("median differs %f from reference: %f vs %f", d, p50, ref.Quantile(0.5))
	}
}

func TestBenchMergesWorkerReferences(t *testing.T) {
	b, err := newBench(time.Millisecond, 2)
	if err != nil {
		t.Fatal(err)
	}
	// each worker sees one half of the range
	var wg sync.WaitGroup
	for w, ref := range b.refs {
		wg.Add(1)
		go func(w int, ref *refSketch) {
			defer wg.Done()
			for i := 1; i <= 500; i++ {
				b.add(ref, time.Duration(w*500+i)*time.Millisecond)
			}
		}(w, ref)
	}
	wg.Wait()
	b.dist.ForceMerge()

	for w, ref := range b.refs {
		if ref.count != 500 {
			t.Fatalf("worker %d: expected 500 samples, got %d", w, ref.count)
		}
	}
	if q := b.refs[0].td.Quantile(0.9); q > 500 {
		t.Fatalf("worker 0 should only have seen the lower half, got p90 %f", q)
	}
	merged, count := b.reference()
	if count != 1000 {
		t.Fatalf("expected 1000 samples, got %d", count)
	}
	if d := relDiff(merged.Quantile(0.5), 500); d > 0.05 {
		t.Fatalf("merged median %f is %f off 500", merged.Quantile(0.5), d)
	}
	if q := merged.Quantile(0.99); q < 900 {
		t.Fatalf("merged p99 %f misses the upper half", q)
	}
	// merging must leave the worker sketches alone
	if _, again := b.reference(); again != 1000 {
		t.Fatalf("expected 1000 samples on second merge, got %d", again)
	}

	b.start = time.Now().Add(-time.Second)
	var buf bytes.Buffer
	b.report(&buf)
	out := buf.String()
	if !strings.Contains(out, "1000.000ms") {
		t.Fatalf("expected max reported in ms, got:\n%s", out)
	}
	if !strings.Contains(out, "p50") {
		t.Fatalf("expected p50 row, got:\n%s", out)
	}
}

func TestRelDiff(t *testing.T) {
	if relDiff(0, 0) != 0 {
		t.Fatal("expected 0")
	}
	if !math.IsInf(relDiff(1, 0), 1) {
		t.Fatal("expected +Inf")
	}
	if relDiff(110, 100) < 0.0999 || relDiff(110, 100) > 0.1001 {
		t.Fatalf("expected 0.1, got %f", relDiff(110, 100))
	}
}
