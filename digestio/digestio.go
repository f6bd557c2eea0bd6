// Package digestio reads and writes streams of decayed digests.
//
// A stream is a snappy framed sequence of msgpack encoded digest envelopes.
// Digests keep their alpha and landmark, so a reader can merge digests from
// several streams after aligning their landmarks.
package digestio

import (
	"io"

	"github.com/benbjohnson/clock"
	"github.com/golang/snappy"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/errors"
	"github.com/tinylib/msgp/msgp"
)

// ContentType is the media type used when serving a stream over http.
const ContentType = "application/x-decaystats-digest"

// Writer encodes digests into a stream. Close must be called to flush it.
type Writer struct {
	sw *snappy.Writer
	mw *msgp.Writer
}

func NewWriter(w io.Writer) *Writer {
	sw := snappy.NewBufferedWriter(w)
	return &Writer{
		sw: sw,
		mw: msgp.NewWriter(sw),
	}
}

// Write appends d to the stream.
func (w *Writer) Write(d *decay.Digest) error {
	env := d.Envelope()
	return w.WriteEnvelope(&env)
}

func (w *Writer) WriteEnvelope(env *decay.DigestEnvelope) error {
	return env.EncodeMsg(w.mw)
}

// Close flushes all pending data. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.mw.Flush(); err != nil {
		return err
	}
	return w.sw.Close()
}

// Reader decodes digests from a stream.
type Reader struct {
	mr    *msgp.Reader
	clock clock.Clock
}

// NewReader returns a Reader whose digests decay according to clk.
func NewReader(r io.Reader, clk clock.Clock) *Reader {
	return &Reader{
		mr:    msgp.NewReader(snappy.NewReader(r)),
		clock: clk,
	}
}

// NextEnvelope returns the next envelope in the stream, or io.EOF after the
// last one.
func (r *Reader) NextEnvelope() (decay.DigestEnvelope, error) {
	var env decay.DigestEnvelope
	err := env.DecodeMsg(r.mr)
	if err != nil {
		if msgp.Cause(err) == io.EOF {
			return env, io.EOF
		}
		return env, errors.NewInvalidArgumentf("digestio: corrupt stream: %s", err)
	}
	return env, nil
}

// Next returns the next digest in the stream, or io.EOF after the last one.
func (r *Reader) Next() (*decay.Digest, error) {
	env, err := r.NextEnvelope()
	if err != nil {
		return nil, err
	}
	return decay.DigestFromEnvelope(env, r.clock)
}

// ReadAll returns all remaining digests in the stream.
func (r *Reader) ReadAll() ([]*decay.Digest, error) {
	var out []*decay.Digest
	for {
		d, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

// Merge folds digests into a single digest with the latest landmark of the
// set. All digests must share an alpha. The inputs are left untouched.
func Merge(digests ...*decay.Digest) (*decay.Digest, error) {
	if len(digests) == 0 {
		return nil, errors.NewInvalidArgument("digestio: nothing to merge")
	}
	landmark := digests[0].Landmark()
	for _, d := range digests[1:] {
		if d.Landmark() > landmark {
			landmark = d.Landmark()
		}
	}
	merged := digests[0].Duplicate()
	merged.RescaleTo(landmark)
	for _, d := range digests[1:] {
		d = d.Duplicate()
		d.RescaleTo(landmark)
		if err := merged.Merge(d); err != nil {
			return nil, err
		}
	}
	return merged, nil
}
