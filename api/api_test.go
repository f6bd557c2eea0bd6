package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/digestio"
	"github.com/grafana/decaystats/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(t *testing.T) *Server {
	maxRoutes = 100
	maxConcurrentDigests = 2
	promNamespace = "test"
	useGzip = false
	s, err := NewServer()
	if err != nil {
		t.Fatal(err)
	}
	s.RegisterRoutes()
	return s
}

func get(s *Server, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Macaron.ServeHTTP(w, httptest.NewRequest("GET", url, nil))
	return w
}

func TestStatsRoutes(t *testing.T) {
	Convey("with some registered metrics", t, func() {
		stats.Clear()
		Reset(stats.Clear)

		s := newTestServer(t)
		sizes := stats.NewDistribution("sizes", 0)
		for _, v := range []float64{1, 2, 3, 4} {
			sizes.Add(v)
		}
		stats.NewDistribution("empty", 0)
		stats.NewGauge32("queue").Set(5)
		stats.NewRange32("depth")

		Convey("the root says OK", func() {
			w := get(s, "/")
			So(w.Code, ShouldEqual, 200)
			So(w.Body.String(), ShouldEqual, "OK")
		})

		Convey("all snapshots are listed, with NaN as null", func() {
			w := get(s, "/stats")
			So(w.Code, ShouldEqual, 200)
			So(w.Header().Get("content-type"), ShouldEqual, "application/json")
			var body map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body, ShouldContainKey, "sizes")
			So(body, ShouldContainKey, "queue")
			So(body, ShouldNotContainKey, "depth")
			So(body["queue"], ShouldEqual, 5)
			So(body["empty"].(map[string]interface{})["p50"], ShouldBeNil)
			So(body["sizes"].(map[string]interface{})["count"], ShouldEqual, 4)
		})

		Convey("a single snapshot can carry extra quantiles", func() {
			w := get(s, "/stats/sizes?q=1&q=0")
			So(w.Code, ShouldEqual, 200)
			var body struct {
				Name      string
				Quantiles []struct {
					Q     float64
					Value float64
				}
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Name, ShouldEqual, "sizes")
			So(len(body.Quantiles), ShouldEqual, 2)
			So(body.Quantiles[0].Q, ShouldEqual, 0)
			So(body.Quantiles[0].Value, ShouldEqual, 1)
			So(body.Quantiles[1].Value, ShouldEqual, 4)
		})

		Convey("bad quantiles are rejected", func() {
			w := get(s, "/stats/sizes?q=2")
			So(w.Code, ShouldBeGreaterThanOrEqualTo, 400)
			So(w.Code, ShouldBeLessThan, 500)
		})

		Convey("quantiles need a digest", func() {
			So(get(s, "/stats/queue?q=0.5").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("unknown metrics are 404", func() {
			So(get(s, "/stats/nope").Code, ShouldEqual, http.StatusNotFound)
			So(get(s, "/stats/nope/digest").Code, ShouldEqual, http.StatusNotFound)
			So(get(s, "/stats/depth").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("digests are exported as a stream", func() {
			w := get(s, "/stats/sizes/digest")
			So(w.Code, ShouldEqual, 200)
			So(w.Header().Get("content-type"), ShouldEqual, digestio.ContentType)
			digests, err := digestio.NewReader(bytes.NewReader(w.Body.Bytes()), clock.New()).ReadAll()
			So(err, ShouldBeNil)
			So(len(digests), ShouldEqual, 1)
			So(digests[0].Count(), ShouldEqual, 4)
			So(digests[0].Max(), ShouldEqual, 4)

			So(get(s, "/stats/queue/digest").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("prometheus gets summaries", func() {
			w := get(s, "/metrics")
			So(w.Code, ShouldEqual, 200)
			So(w.Body.String(), ShouldContainSubstring, "test_sizes_count 4")
			So(w.Body.String(), ShouldContainSubstring, "test_queue 5")
		})

		Convey("requests are tracked per path", func() {
			get(s, "/stats")
			get(s, "/stats")
			names := strings.Join(stats.Names(), ",")
			So(names, ShouldContainSubstring, "api.request.stats,")
			So(names, ShouldContainSubstring, "api.request.stats.status.200")
			c, ok := stats.Get("api.request.stats.status.200")
			So(ok, ShouldBeTrue)
			So(c.(*stats.Counter32).Peek(), ShouldEqual, 2)
		})
	})
}
