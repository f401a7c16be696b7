// Package capture delivers finished HTTP exchanges to subscribers.
package capture

import (
	"net/http"
	"strings"
	"time"
)

// Header is one response header as observed on the wire.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Exchange is one finished request/response pair.
type Exchange struct {
	URL        string
	Method     string
	StatusCode int
	Elapsed    time.Duration
	Headers    []Header
}

// Lookup returns the value of the header named name, compared
// case-insensitively. When a name repeats, the last occurrence wins.
func (e Exchange) Lookup(name string) (value string, found bool) {
	for _, h := range e.Headers {
		if strings.EqualFold(h.Name, name) {
			value, found = h.Value, true
		}
	}
	return value, found
}

// HeadersFrom flattens an http.Header into name/value pairs.
func HeadersFrom(h http.Header) []Header {
	out := make([]Header, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

// Handler consumes exchanges. Handlers are invoked serially.
type Handler func(Exchange)

// Source is anything that can deliver finished exchanges to a Handler.
type Source interface {
	Subscribe(h Handler)
}
