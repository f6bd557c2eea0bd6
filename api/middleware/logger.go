package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	macaron "gopkg.in/macaron.v1"
)

type LoggingResponseWriter struct {
	macaron.ResponseWriter
	errBody []byte // the body in case it is an error
}

func (rw *LoggingResponseWriter) Write(b []byte) (int, error) {
	if rw.ResponseWriter.Status() >= 400 {
		rw.errBody = make([]byte, len(b))
		copy(rw.errBody, b)
	}
	return rw.ResponseWriter.Write(b)
}

// Logger logs failed requests, and slow ones when minDur > 0.
func Logger(minDur time.Duration, logHeaders bool) macaron.Handler {
	return func(ctx *macaron.Context) {
		start := time.Now()
		rw := &LoggingResponseWriter{
			ResponseWriter: ctx.Resp,
		}
		ctx.Resp = rw
		ctx.MapTo(ctx.Resp, (*http.ResponseWriter)(nil))
		ctx.Next()

		took := time.Since(start)
		failed := rw.Status() < 200 || rw.Status() >= 300
		if !failed && (minDur == 0 || took < minDur) {
			return
		}

		fields := log.Fields{
			"method": ctx.Req.Method,
			"path":   ctx.Req.URL.Path,
			"status": rw.Status(),
			"took":   took,
		}
		if len(ctx.Req.URL.RawQuery) > 0 {
			fields["query"] = ctx.Req.URL.RawQuery
		}
		if referer := ctx.Req.Referer(); referer != "" {
			fields["referer"] = referer
		}
		if sourceIP := ctx.RemoteAddr(); sourceIP != "" {
			fields["sourceIP"] = sourceIP
		}
		if failed && len(rw.errBody) > 0 {
			fields["error"] = url.PathEscape(string(rw.errBody))
		}
		if logHeaders {
			headers, err := extractHeaders(ctx.Req.Request)
			if err != nil {
				log.Errorf("Could not extract request headers: %v", err)
			}
			if headers != "" {
				fields["headers"] = headers
			}
		}

		entry := log.WithFields(fields)
		msg := fmt.Sprintf("%s %s", ctx.Req.Method, ctx.Req.URL.Path)
		if rw.Status() >= 500 {
			entry.Warn(msg)
			return
		}
		entry.Info(msg)
	}
}

func extractHeaders(req *http.Request) (string, error) {
	var b bytes.Buffer

	// Exclude some headers for security, or just that we don't need them when debugging
	err := req.Header.WriteSubset(&b, map[string]bool{
		"Cookie":        true,
		"X-Csrf-Token":  true,
		"Authorization": true,
	})
	if err != nil {
		return "", err
	}
	return url.PathEscape(b.String()), nil
}
