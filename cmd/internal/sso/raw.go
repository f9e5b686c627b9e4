package sso

import (
	"net/http"
	"strconv"
)

// RawResponse is a complete response that must reach the client verbatim,
// without any host page around it. Handlers write it and stop.
type RawResponse struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Write sends r on w.
func (r RawResponse) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range r.Header {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	if r.ContentType != "" {
		h.Set("Content-Type", r.ContentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(r.Body)))

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}
