package response

import (
	"bytes"

	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/digestio"
)

// Digest renders decayed digests as a digestio stream.
type Digest struct {
	code    int
	digests []*decay.Digest
	buf     []byte
}

func NewDigest(code int, digests ...*decay.Digest) *Digest {
	return &Digest{
		code:    code,
		digests: digests,
		buf:     BufferPool.Get(),
	}
}

func (r *Digest) Code() int {
	return r.code
}

func (r *Digest) Close() {
	BufferPool.Put(r.buf)
}

func (r *Digest) Body() ([]byte, error) {
	buf := bytes.NewBuffer(r.buf)
	w := digestio.NewWriter(buf)
	for _, d := range r.digests {
		if err := w.Write(d); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	r.buf = buf.Bytes()
	return r.buf, nil
}

func (r *Digest) Headers() (headers map[string]string) {
	headers = map[string]string{"content-type": digestio.ContentType}
	return headers
}
