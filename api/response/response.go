// Package response renders api results. Every handler builds a Response and
// hands it to Write, which takes care of headers, status and pooled buffers.
package response

import (
	"net/http"

	"github.com/grafana/decaystats/util"
	log "github.com/sirupsen/logrus"
)

var BufferPool = util.NewBufferPool(4096, 4<<20) // used by fastjson and digest responses to serialize into

func Write(w http.ResponseWriter, resp Response) {
	defer resp.Close()
	body, err := resp.Body()
	if err != nil {
		log.Errorf("api: failed to render %T response: %s", resp, err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	for k, v := range resp.Headers() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Code())
	w.Write(body)
}

type Response interface {
	Code() int
	Body() ([]byte, error)
	Headers() map[string]string
	Close()
}
