package stats

import (
	"bytes"
	"context"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/grafana/decaystats/clock"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	queueItems      *Range32
	genDataDuration *Gauge32
	flushDuration   *TimeDistribution
	messageSize     *Gauge32
	connected       *Bool
)

// Graphite periodically renders every registered metric in the carbon
// plaintext protocol and ships the result to a graphite endpoint.
type Graphite struct {
	prefix []byte
	addr   string
	clock  clock.Clock

	timeout    time.Duration
	toGraphite chan []byte

	// write and dial failures can repeat every attempt, only some get logged as warnings
	warnLimiter *rate.Limiter
}

func newGraphite(prefix, addr string, bufferSize int, timeout time.Duration, clk clock.Clock) *Graphite {
	if len(prefix) != 0 && prefix[len(prefix)-1] != '.' {
		prefix = prefix + "."
	}
	NewGauge32("stats.graphite.write_queue.size").Set(bufferSize)
	queueItems = NewRange32("stats.graphite.write_queue.items")
	// metric stats.generate_message is how long it takes to generate the stats
	genDataDuration = NewGauge32("stats.generate_message.duration")
	flushDuration = NewTimeDistribution("stats.graphite.flush", time.Millisecond)
	messageSize = NewGauge32("stats.message_size")
	connected = NewBool("stats.graphite.connected")

	return &Graphite{
		prefix:      []byte(prefix),
		addr:        addr,
		clock:       clk,
		toGraphite:  make(chan []byte, bufferSize),
		timeout:     timeout,
		warnLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// NewGraphite starts reporting to addr every interval, until ctx is canceled.
func NewGraphite(ctx context.Context, prefix, addr string, interval time.Duration, bufferSize int, timeout time.Duration) *Graphite {
	g := newGraphite(prefix, addr, bufferSize, timeout, clock.New())
	go g.writer(ctx)
	go g.reporter(ctx, interval)
	return g
}

func (g *Graphite) reporter(ctx context.Context, interval time.Duration) {
	ticker := clock.AlignedTickLossy(ctx, g.clock, interval)
	for now := range ticker {
		log.Debugf("stats flushing for %s to graphite", now)
		queueItems.Value(len(g.toGraphite))
		if cap(g.toGraphite) != 0 && len(g.toGraphite) == cap(g.toGraphite) {
			// no space in buffer, no use in doing any work
			continue
		}

		pre := time.Now()
		buf := g.message(now)
		genDataDuration.Set(int(time.Since(pre).Nanoseconds()))
		messageSize.Set(len(buf))

		select {
		case g.toGraphite <- buf:
		case <-ctx.Done():
			return
		}
		queueItems.Value(len(g.toGraphite))
	}
}

// message renders all registered metrics, in name order.
func (g *Graphite) message(now time.Time) []byte {
	metrics := registry.list()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := make([]byte, 0)
	var fullPrefix bytes.Buffer
	for _, name := range names {
		fullPrefix.Reset()
		fullPrefix.Write(g.prefix)
		fullPrefix.WriteString(name)
		fullPrefix.WriteRune('.')
		buf = metrics[name].ReportGraphite(fullPrefix.Bytes(), buf, now)
	}
	return buf
}

func (g *Graphite) warnf(format string, args ...interface{}) {
	if g.warnLimiter.Allow() {
		log.Warnf(format, args...)
		return
	}
	log.Debugf(format, args...)
}

// writer connects to graphite and submits all pending data to it
func (g *Graphite) writer(ctx context.Context) {
	var conn net.Conn
	var err error
	var wg sync.WaitGroup

	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    time.Minute,
		Factor: 1.5,
		Jitter: true,
	}

	defer func() {
		if conn != nil {
			conn.Close()
			wg.Wait()
		}
		connected.Set(false)
	}()

	// assureConn returns false if ctx got canceled before a connection could be made
	assureConn := func() bool {
		connected.Set(conn != nil)
		for conn == nil {
			var d net.Dialer
			conn, err = d.DialContext(ctx, "tcp", g.addr)
			if err == nil {
				log.Infof("stats now connected to %s", g.addr)
				b.Reset()
				wg.Add(1)
				go g.checkEOF(conn, &wg)
				break
			}
			conn = nil
			wait := b.Duration()
			g.warnf("stats dialing %s failed: %s. will retry in %s", g.addr, err.Error(), wait)
			select {
			case <-g.clock.After(wait):
			case <-ctx.Done():
				return false
			}
		}
		connected.Set(conn != nil)
		return true
	}

	for {
		var buf []byte
		select {
		case buf = <-g.toGraphite:
		case <-ctx.Done():
			return
		}
		queueItems.Value(len(g.toGraphite))
		for {
			if !assureConn() {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(g.timeout))
			pre := time.Now()
			_, err = conn.Write(buf)
			if err == nil {
				flushDuration.Since(pre)
				break
			}
			g.warnf("stats failed to write to graphite: %s (took %s). will retry...", err, time.Since(pre))
			conn.Close()
			wg.Wait()
			conn = nil
		}
	}
}

// normally the remote end should never write anything back
// but we know when we get EOF that the other end closed the conn
// if not for this, we can happily write and flush without getting errors (in Go) but getting RST tcp packets back (!)
func (g *Graphite) checkEOF(conn net.Conn, wg *sync.WaitGroup) {
	defer wg.Done()
	b := make([]byte, 1024)
	for {
		num, err := conn.Read(b)
		if err == io.EOF {
			log.Info("Graphite.checkEOF: remote closed conn. closing conn")
			conn.Close()
			return
		}

		// in case the remote behaves badly (violating the carbon protocol)
		if num != 0 {
			log.Warnf("Graphite.checkEOF: read unexpected data from peer: %s", b[:num])
			continue
		}

		if err != nil {
			log.Debugf("Graphite.checkEOF: %s. closing conn", err)
			conn.Close()
			return
		}
	}
}
