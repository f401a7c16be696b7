package capture

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// harLog mirrors the subset of HAR 1.2 that devtools network exports carry
// and that the panel needs.
type harLog struct {
	Log struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

type harEntry struct {
	Time    float64 `json:"time"`
	Request struct {
		Method string `json:"method"`
		URL    string `json:"url"`
	} `json:"request"`
	Response struct {
		Status  int      `json:"status"`
		Headers []Header `json:"headers"`
	} `json:"response"`
}

// HARSource replays the entries of a HAR archive as exchanges.
type HARSource struct {
	exchanges []Exchange
	handlers  []Handler
}

// LoadHAR decodes a HAR document.
func LoadHAR(r io.Reader) (*HARSource, error) {
	var doc harLog
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode har: %w", err)
	}

	s := &HARSource{exchanges: make([]Exchange, 0, len(doc.Log.Entries))}
	for _, e := range doc.Log.Entries {
		s.exchanges = append(s.exchanges, Exchange{
			URL:        e.Request.URL,
			Method:     e.Request.Method,
			StatusCode: e.Response.Status,
			Elapsed:    time.Duration(e.Time * float64(time.Millisecond)),
			Headers:    e.Response.Headers,
		})
	}
	return s, nil
}

func (s *HARSource) Subscribe(h Handler) {
	s.handlers = append(s.handlers, h)
}

// Len returns the number of entries in the archive.
func (s *HARSource) Len() int {
	return len(s.exchanges)
}

// Replay delivers every entry, in archive order, to every subscriber.
func (s *HARSource) Replay() {
	for _, e := range s.exchanges {
		for _, h := range s.handlers {
			h(e)
		}
	}
}
