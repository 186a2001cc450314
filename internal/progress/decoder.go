package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"qabench/internal/bench"
)

const dataPrefix = "data: "

// Decoder parses an SSE byte stream into events. Reads may split frames at
// any byte; partial lines are kept until their newline arrives. Lines that
// are not data frames, or whose payload does not parse, are skipped.
type Decoder struct {
	r       io.Reader
	buf     []byte
	pending []bench.Event
	chunk   []byte
	err     error
}

// NewDecoder reads frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, chunk: make([]byte, 4096)}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (d *Decoder) Next() (bench.Event, error) {
	for len(d.pending) == 0 {
		if d.err != nil {
			return bench.Event{}, d.err
		}
		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.Feed(d.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A final frame without a trailing newline still counts.
				d.flushLine()
			}
			d.err = err
		}
	}
	event := d.pending[0]
	d.pending = d.pending[1:]
	return event, nil
}

// Feed appends a chunk of bytes and queues every complete event it closes.
func (d *Decoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)
	for {
		index := bytes.IndexByte(d.buf, '\n')
		if index < 0 {
			return
		}
		line := string(d.buf[:index])
		d.buf = d.buf[index+1:]
		d.parseLine(line)
	}
}

// Drain returns the events queued by Feed.
func (d *Decoder) Drain() []bench.Event {
	events := d.pending
	d.pending = nil
	return events
}

func (d *Decoder) flushLine() {
	if len(d.buf) == 0 {
		return
	}
	line := string(d.buf)
	d.buf = nil
	d.parseLine(line)
}

func (d *Decoder) parseLine(line string) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return
	}
	var event bench.Event
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &event); err != nil {
		return
	}
	d.pending = append(d.pending, event)
}

// Events decodes r on a goroutine. The channel closes at end of stream, on a
// read error, or when ctx is done; a read error other than EOF is delivered
// as a terminal error event.
func Events(ctx context.Context, r io.Reader) <-chan bench.Event {
	out := make(chan bench.Event)
	go func() {
		defer close(out)
		decoder := NewDecoder(r)
		for {
			event, err := decoder.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					select {
					case out <- bench.ErrorEvent(err.Error()):
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
