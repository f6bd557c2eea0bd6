package response

import (
	"encoding/json"
)

// FastJSON is implemented by bodies that append their own json encoding,
// typically because they hold values encoding/json rejects, such as NaN.
type FastJSON interface {
	MarshalJSONFast([]byte) ([]byte, error)
}

// JSON renders body with MarshalJSONFast when it has one, and with
// encoding/json otherwise.
type JSON struct {
	code int
	body interface{}
	buf  []byte
}

func NewJSON(code int, body interface{}) *JSON {
	return &JSON{
		code: code,
		body: body,
		buf:  BufferPool.Get(),
	}
}

func (r *JSON) Code() int {
	return r.code
}

func (r *JSON) Close() {
	BufferPool.Put(r.buf)
}

func (r *JSON) Body() ([]byte, error) {
	if f, ok := r.body.(FastJSON); ok {
		var err error
		r.buf, err = f.MarshalJSONFast(r.buf)
		return r.buf, err
	}
	b, err := json.Marshal(r.body)
	if err != nil {
		return nil, err
	}
	r.buf = append(r.buf, b...)
	return r.buf, nil
}

func (r *JSON) Headers() map[string]string {
	return map[string]string{"content-type": "application/json"}
}
