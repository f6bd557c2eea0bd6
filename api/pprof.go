package api

import (
	"net/http"
	"runtime"
	rpprof "runtime/pprof"
	"strconv"
	"time"
)

// rateProfileHandler returns a handler that enables a sampled profile at a
// caller-chosen rate for a while, then writes it out, similar to the standard
// library handlers. Lock contention on distribution stripes shows up in the
// mutex profile; blocked writers in the block profile.
//
// Query parameters: seconds (default 30), rate (default defaultRate), debug.
func rateProfileHandler(profile string, defaultRate int, setRate func(int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		debug, _ := strconv.Atoi(r.FormValue("debug"))
		sec, _ := strconv.ParseInt(r.FormValue("seconds"), 10, 64)
		if sec <= 0 {
			sec = 30
		}
		rate, _ := strconv.Atoi(r.FormValue("rate"))
		if rate <= 0 {
			rate = defaultRate
		}

		setRate(rate)
		timer := time.NewTimer(time.Duration(sec) * time.Second)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
		}
		setRate(0)

		w.Header().Set("Content-Type", "application/octet-stream")
		rpprof.Lookup(profile).WriteTo(w, debug)
	}
}

// the block profiler aims to sample one blocking event per rate nanoseconds spent blocked.
var blockHandler = rateProfileHandler("block", 10000, runtime.SetBlockProfileRate)

// the mutex profiler reports on average 1/rate contention events.
var mutexHandler = rateProfileHandler("mutex", 1000, func(rate int) { runtime.SetMutexProfileFraction(rate) })
