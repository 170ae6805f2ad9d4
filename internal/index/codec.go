package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatForPath picks the encoding from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown snapshot extension %q (want .json, .msgpack or .mpk)", filepath.Ext(path))
	}
}

// record is the serialized form of a node. Folders always carry
// children_info, which is how decoding tells them from files.
type record struct {
	Path      string              `json:"path" msgpack:"path"`
	Summary   *string             `json:"summary" msgpack:"summary"`
	Embedding []float64           `json:"summary_embedding" msgpack:"summary_embedding"`
	Children  *map[string]*record `json:"children_info,omitempty" msgpack:"children_info,omitempty"`
}

func toRecord(n Node, depth int) (*record, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w at %s", ErrTooDeep, n.Info().Path)
	}
	b := n.Info()
	r := &record{Path: b.Path}
	if b.Summary != "" {
		s := b.Summary
		r.Summary = &s
	}
	r.Embedding = b.Embedding
	if folder, ok := n.(*FolderNode); ok {
		children := make(map[string]*record, len(folder.Children))
		for _, c := range folder.Children {
			if c.Node == nil {
				children[c.Name] = nil
				continue
			}
			cr, err := toRecord(c.Node, depth+1)
			if err != nil {
				return nil, err
			}
			children[c.Name] = cr
		}
		r.Children = &children
	}
	return r, nil
}

func fromRecord(r *record, depth int) (Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w at %s", ErrTooDeep, r.Path)
	}
	b := Base{Path: r.Path}
	if r.Summary != nil {
		b.Summary = *r.Summary
	}
	b.Embedding = r.Embedding
	if r.Children == nil {
		return &FileNode{Base: b}, nil
	}
	names := make([]string, 0, len(*r.Children))
	for name := range *r.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	children := make([]Child, 0, len(names))
	for _, name := range names {
		cr := (*r.Children)[name]
		if cr == nil {
			children = append(children, Child{Name: name})
			continue
		}
		cn, err := fromRecord(cr, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, Child{Name: name, Node: cn})
	}
	return &FolderNode{Base: b, Children: children}, nil
}

// Encode writes root to w.
func Encode(w io.Writer, root Node, format Format) error {
	r, err := toRecord(root, 0)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode msgpack: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

// Decode reads a tree from r.
func Decode(r io.Reader, format Format) (Node, error) {
	var rec record
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	return fromRecord(&rec, 0)
}

// Save writes root to path, choosing the encoding from the extension.
func Save(path string, root Node) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, root, format); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (Node, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}
