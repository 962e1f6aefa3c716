package main

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/2tvenom/cbor"
	"github.com/valyala/bytebufferpool"
)

const (
	formatText = "text"
	formatCBOR = "cbor"
)

// printer renders demo events. Subscribers on different schedulers share
// one printer, so writes are serialized.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "", formatText:
		format = formatText
	case formatCBOR:
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &printer{w: w, format: format}, nil
}

func (p *printer) print(scenario, event string, value interface{}) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	switch p.format {
	case formatCBOR:
		var cb bytes.Buffer
		encoder := cbor.NewEncoder(&cb)
		if _, err := encoder.Marshal(map[string]string{
			"scenario": scenario,
			"event":    event,
			"value":    fmt.Sprint(value),
		}); err != nil {
			return err
		}
		_, _ = buf.Write(cb.Bytes())
	default:
		_, _ = buf.WriteString(scenario)
		_, _ = buf.WriteString(" | ")
		_, _ = buf.WriteString(event)
		if value != nil {
			_, _ = buf.WriteString(": ")
			_, _ = fmt.Fprint(buf, value)
		}
		_ = buf.WriteByte('\n')
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.w.Write(buf.B)
	return err
}
