package geojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write encodes fc without HTML escaping, optionally indented.
func Write(w io.Writer, fc any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(fc)
}

// Append merges fc's features and segment lookups into the collection
// stored at path, creating it if needed. A missing or unreadable file is
// treated as an empty collection. Other top-level members of the existing
// file are preserved; name and source are only filled in when absent.
func Append(path string, fc *FeatureCollection, pretty bool) error {
	target := map[string]json.RawMessage{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &target); err != nil || target == nil {
			target = map[string]json.RawMessage{}
		}
	}

	if _, ok := target["type"]; !ok {
		target["type"] = json.RawMessage(`"FeatureCollection"`)
	}
	if err := extend(target, "features", fc.Features); err != nil {
		return err
	}
	if len(fc.Segments) > 0 {
		if err := extend(target, "segments", fc.Segments); err != nil {
			return err
		}
	}
	if _, ok := target["name"]; !ok && fc.Name != "" {
		if err := setRaw(target, "name", fc.Name); err != nil {
			return err
		}
	}
	if _, ok := target["source"]; !ok && fc.Source != nil {
		if err := setRaw(target, "source", fc.Source); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, target, pretty); err != nil {
		return fmt.Errorf("geojson: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// extend appends items to the array stored under key. A member that is not
// an array is replaced.
func extend[T any](target map[string]json.RawMessage, key string, items []T) error {
	var list []json.RawMessage
	if raw, ok := target[key]; ok {
		if err := json.Unmarshal(raw, &list); err != nil {
			list = nil
		}
	}
	for _, it := range items {
		b, err := marshal(it)
		if err != nil {
			return fmt.Errorf("geojson: %s: %w", key, err)
		}
		list = append(list, b)
	}
	if list == nil {
		list = []json.RawMessage{}
	}
	return setRaw(target, key, list)
}

func setRaw(target map[string]json.RawMessage, key string, v any) error {
	b, err := marshal(v)
	if err != nil {
		return fmt.Errorf("geojson: %s: %w", key, err)
	}
	target[key] = b
	return nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v, false); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
