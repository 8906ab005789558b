// Package sse decodes the server-sent event protocol used by the document
// processing pipeline: UTF-8 text records separated by a blank line, each
// carrying one or more "data: " payload lines with a JSON body.
package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"studyhall/internal/model"
)

// Kind discriminates decoded records.
type Kind int

const (
	// KindProgress is an intermediate pipeline progress event.
	KindProgress Kind = iota
	// KindResult is the terminal success record carrying the final document.
	KindResult
	// KindError is a pipeline failure reported in-stream by the server.
	KindError
)

// Record is one decoded protocol record. Event is set for KindProgress and
// KindError; Payload always holds the raw JSON body so callers can decode
// result fields themselves.
type Record struct {
	Kind    Kind
	Event   model.ProgressEvent
	Payload json.RawMessage
}

// Decoder incrementally decodes records from a streaming response body.
// It buffers raw bytes across reads, so record delimiters and multi-byte
// characters split across chunk boundaries are reassembled correctly.
// A Decoder is single-use: one stream, one Decoder.
type Decoder struct {
	r    io.Reader
	log  *slog.Logger
	buf  []byte
	read []byte
	eof  bool
}

// NewDecoder returns a Decoder reading from r. Malformed records are logged
// to log and skipped.
func NewDecoder(r io.Reader, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{r: r, log: log, read: make([]byte, 4096)}
}

var recordSep = []byte("\n\n")

// Next returns the next well-formed record from the stream. It returns
// io.EOF once the underlying stream is exhausted; any other error comes
// from the underlying reader. Records that fail to parse are skipped.
func (d *Decoder) Next() (Record, error) {
	for {
		if i := bytes.Index(d.buf, recordSep); i >= 0 {
			raw := d.buf[:i]
			d.buf = d.buf[i+len(recordSep):]
			if rec, ok := d.parse(raw); ok {
				return rec, nil
			}
			continue
		}
		if d.eof {
			// A final record may arrive without the trailing blank line.
			if len(bytes.TrimSpace(d.buf)) > 0 {
				raw := d.buf
				d.buf = nil
				if rec, ok := d.parse(raw); ok {
					return rec, nil
				}
			}
			return Record{}, io.EOF
		}
		n, err := d.r.Read(d.read)
		if n > 0 {
			d.buf = append(d.buf, d.read[:n]...)
		}
		if err == io.EOF {
			d.eof = true
		} else if err != nil {
			return Record{}, err
		}
	}
}

// parse extracts the JSON payload from one raw record and classifies it.
// Reports ok=false for records with no payload or an undecodable body.
func (d *Decoder) parse(raw []byte) (Record, bool) {
	var data []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(rest, " "))
		}
	}
	if len(data) == 0 {
		if len(bytes.TrimSpace(raw)) > 0 {
			d.log.Warn("skipping stream record without data line", "record", string(raw))
		}
		return Record{}, false
	}
	payload := []byte(strings.Join(data, "\n"))

	var probe struct {
		Status   string `json:"status"`
		Stage    string `json:"stage"`
		Progress *int   `json:"progress"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		d.log.Warn("skipping malformed stream record", "error", err, "payload", string(payload))
		return Record{}, false
	}

	rec := Record{Payload: json.RawMessage(payload)}
	switch {
	case probe.Status == "success":
		rec.Kind = KindResult
	case probe.Stage == string(model.StageError):
		rec.Kind = KindError
		rec.Event = model.ProgressEvent{Stage: model.StageError, Message: probe.Message}
	case probe.Stage != "" || probe.Progress != nil:
		rec.Kind = KindProgress
		rec.Event = model.ProgressEvent{Stage: model.Stage(probe.Stage), Message: probe.Message}
		if probe.Progress != nil {
			rec.Event.Progress = *probe.Progress
		}
	default:
		d.log.Warn("skipping unrecognized stream record", "payload", string(payload))
		return Record{}, false
	}
	return rec, true
}
