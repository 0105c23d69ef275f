package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("cannot infer snapshot format from %q", path)
	}
}

// Encode writes s to w in the given format.
func Encode(w io.Writer, s *Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(s)
	default:
		return fmt.Errorf("unsupported snapshot format %q", f)
	}
}

// Decode reads a snapshot from r in the given format.
func Decode(r io.Reader, f Format) (*Snapshot, error) {
	s := new(Snapshot)
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(s); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", f)
	}
	return s, nil
}

// Load reads the snapshot stored at path.
func Load(path string) (*Snapshot, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	return Decode(file, f)
}

// Save writes s to path, replacing any existing file.
func Save(path string, s *Snapshot) (err error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close snapshot: %w", cerr)
		}
	}()

	if err := Encode(file, s, f); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}
