package replay

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// Encode marshals a replay envelope. Field order follows the struct,
// so identical recordings encode identically.
func Encode(rep *Replay) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// EncodeCompressed gzips the JSON form.
func EncodeCompressed(rep *Replay) ([]byte, error) {
	data, err := Encode(rep)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes an exported replay, accepting both the plain and the
// gzip-compressed form.
func Parse(data []byte) (*Replay, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress replay: %w", err)
		}
		defer zr.Close()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress replay: %w", err)
		}
	}
	var rep Replay
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse replay: %w", err)
	}
	return &rep, nil
}

// ExportJSON exports a replay, active or completed, as JSON. The
// export is built under the recorder lock so a concurrent recording
// cannot tear it.
func (r *Recorder) ExportJSON(gameID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.active[gameID]
	if !ok {
		rep, ok = r.completed[gameID]
	}
	if !ok {
		return nil, ErrNoReplay
	}
	return Encode(rep)
}

// ExportCompressed exports the gzip form.
func (r *Recorder) ExportCompressed(gameID string) ([]byte, error) {
	data, err := r.ExportJSON(gameID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
