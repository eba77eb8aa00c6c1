// Package ldk decodes LDK archives and extracts the TRK tracks embedded in
// their data leaves.
//
// An archive is a tree of nodes addressed by absolute file offsets. Each node
// has a metadata block and an entries table listing child nodes and data
// leaves. Leaf payloads may be continued through a chain of additional-data
// chunks.
package ldk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/track"
	"alp2gpx/internal/trk"
)

const (
	entriesMagic        = 0x00025555
	entriesCompactMagic = 0x00045555

	// Node metadata sits this far past the node's metadata pointer.
	metadataSkew = 0x20
	// An empty entry slot is a pointer plus a uuid.
	emptySlotSize = 12
	// Metadata blocks inside archives always use the era-2 layout.
	metadataEra = 2

	reservedHeaderBytes = 4 * 8
	maxPrealloc         = 1024
)

// Leaf payload types. Only tracks are decoded.
const (
	LeafWaypoints = 101
	LeafSet       = 102
	LeafRoute     = 103
	LeafTrack     = 104
	LeafArea      = 105
)

var (
	// ErrCircularChain is returned when a node points back at one of its
	// ancestors, or an additional-data chain revisits an offset.
	ErrCircularChain = errors.New("circular reference")
	// ErrMalformedEntries is returned when an entries table declares fewer
	// slots than child and data references.
	ErrMalformedEntries = errors.New("malformed entries table")
)

// Archive is the result of decoding one LDK file.
type Archive struct {
	Version int32
	Items   []Item
}

// Item is one embedded track with the location of the leaf that carried it.
type Item struct {
	Path  string
	UUID  uint32
	Track *track.Track
}

// Decoder decodes LDK archives. The zero value is ready to use.
type Decoder struct {
	// Options are passed to every reader, including embedded TRK decodes.
	Options binread.Options
	// Logf, when set, receives one line per recovered condition.
	Logf func(format string, args ...any)
}

// Decode is shorthand for a Decoder with the given options and no logger.
func Decode(rs io.ReadSeeker, opts binread.Options) (*Archive, error) {
	d := Decoder{Options: opts}
	return d.Decode(rs)
}

// Decode walks the archive depth-first. Any error aborts the walk and no
// tracks are returned.
func (d *Decoder) Decode(rs io.ReadSeeker) (*Archive, error) {
	w := &walker{
		d:         d,
		r:         binread.NewReader(rs, d.Options),
		ancestors: make(map[uint64]bool),
	}
	if err := w.r.SeekTo(0); err != nil {
		return nil, err
	}
	if _, err := w.r.Int32(); err != nil {
		return nil, fmt.Errorf("ldk magic: %w", err)
	}
	version, err := w.r.Int32()
	if err != nil {
		return nil, fmt.Errorf("ldk version: %w", err)
	}
	root, err := w.r.Pointer()
	if err != nil {
		return nil, fmt.Errorf("ldk root pointer: %w", err)
	}
	if err := w.r.Skip(reservedHeaderBytes); err != nil {
		return nil, fmt.Errorf("ldk header: %w", err)
	}
	if err := w.node(root, "", 0); err != nil {
		return nil, err
	}
	return &Archive{Version: version, Items: w.items}, nil
}

type ref struct {
	offset uint64
	uuid   uint32
}

type walker struct {
	d         *Decoder
	r         *binread.Reader
	ancestors map[uint64]bool
	items     []Item
}

func (w *walker) logf(format string, args ...any) {
	if w.d.Logf != nil {
		w.d.Logf(format, args...)
	}
}

// node decodes the node at off, recursing into its children before its own
// data leaves. A node shared by several parents is decoded once per parent.
func (w *walker) node(off uint64, parentPath string, uuid uint32) error {
	if w.ancestors[off] {
		return fmt.Errorf("%w: node at 0x%X", ErrCircularChain, off)
	}
	w.ancestors[off] = true
	defer delete(w.ancestors, off)

	if err := w.r.SeekPointer(off); err != nil {
		return fmt.Errorf("node at 0x%X: %w", off, err)
	}
	// magic, flags
	if err := w.r.Skip(8); err != nil {
		return fmt.Errorf("node at 0x%X: %w", off, err)
	}
	metaPtr, err := w.r.Pointer()
	if err != nil {
		return fmt.Errorf("node at 0x%X: %w", off, err)
	}
	entriesAt, err := w.r.Pointer()
	if err != nil {
		return fmt.Errorf("node at 0x%X: %w", off, err)
	}

	if metaPtr > ^uint64(0)-metadataSkew {
		return fmt.Errorf("%w: node at 0x%X: metadata pointer 0x%X", binread.ErrTruncatedInput, off, metaPtr)
	}
	if err := w.r.SeekPointer(metaPtr + metadataSkew); err != nil {
		return fmt.Errorf("node at 0x%X: %w", off, err)
	}
	meta, err := trk.ReadMetadata(w.r, metadataEra)
	if err != nil {
		return fmt.Errorf("node at 0x%X metadata: %w", off, err)
	}
	path := nodePath(parentPath, uuid, &meta)

	children, data, ok, err := w.entries(entriesAt)
	if err != nil {
		return fmt.Errorf("node at 0x%X entries: %w", off, err)
	}
	if !ok {
		return nil
	}
	for _, c := range children {
		if err := w.node(c.offset, path, c.uuid); err != nil {
			return err
		}
	}
	for _, e := range data {
		if err := w.leaf(e, path); err != nil {
			return err
		}
	}
	return nil
}

// nodePath names a node for the data entries it holds. The path is not
// joined with the parent's: a named node yields "name/", an unnamed one its
// uuid in hex. Nodes without a uuid collapse to "/" below the root.
func nodePath(parent string, uuid uint32, meta *track.Metadata) string {
	switch {
	case uuid != 0:
		if name, _ := meta.Text("name"); name != "" {
			return name + "/"
		}
		return fmt.Sprintf("%08X", uuid)
	case parent != "":
		return "/"
	default:
		return parent
	}
}

// entries reads the table at off. ok is false when the table magic is not
// recognised; the node is then treated as empty.
func (w *walker) entries(off uint64) (children, data []ref, ok bool, err error) {
	if err := w.r.SeekPointer(off); err != nil {
		return nil, nil, false, err
	}
	magic, err := w.r.Int32()
	if err != nil {
		return nil, nil, false, err
	}

	var nChild, nData, nEmpty int32
	switch uint32(magic) {
	case entriesMagic:
		total, err := w.r.Int32()
		if err != nil {
			return nil, nil, false, err
		}
		if nChild, err = w.r.Int32(); err != nil {
			return nil, nil, false, err
		}
		if nData, err = w.r.Int32(); err != nil {
			return nil, nil, false, err
		}
		// reserved pointer
		if err := w.r.Skip(8); err != nil {
			return nil, nil, false, err
		}
		nEmpty = total - nChild - nData
		if nEmpty < 0 {
			return nil, nil, false, fmt.Errorf("%w: %d slots for %d children and %d data entries",
				ErrMalformedEntries, total, nChild, nData)
		}
	case entriesCompactMagic:
		if nChild, err = w.r.Int32(); err != nil {
			return nil, nil, false, err
		}
		if nData, err = w.r.Int32(); err != nil {
			return nil, nil, false, err
		}
	default:
		w.logf("ldk: entries at 0x%X: unrecognised magic 0x%08X, treating node as empty", off, uint32(magic))
		return nil, nil, false, nil
	}

	if children, err = w.refs(nChild); err != nil {
		return nil, nil, false, err
	}
	if err := w.r.Skip(int64(nEmpty) * emptySlotSize); err != nil {
		return nil, nil, false, err
	}
	if data, err = w.refs(nData); err != nil {
		return nil, nil, false, err
	}
	return children, data, true, nil
}

func (w *walker) refs(n int32) ([]ref, error) {
	out := make([]ref, 0, min(max(int(n), 0), maxPrealloc))
	for i := int32(0); i < n; i++ {
		off, err := w.r.Pointer()
		if err != nil {
			return nil, err
		}
		uuid, err := w.r.Int32()
		if err != nil {
			return nil, err
		}
		out = append(out, ref{offset: off, uuid: uint32(uuid)})
	}
	return out, nil
}

// leaf reads a data leaf and decodes it when it carries a track.
func (w *walker) leaf(e ref, path string) error {
	payload, err := w.payload(e.offset)
	if err != nil {
		return fmt.Errorf("leaf at 0x%X: %w", e.offset, err)
	}
	if len(payload) < 4 {
		w.logf("ldk: leaf %s%08X: payload of %d bytes has no type, skipping", path, e.uuid, len(payload))
		return nil
	}
	typ := int32(binary.LittleEndian.Uint32(payload[:4]))
	if typ != LeafTrack {
		w.logf("ldk: leaf %s%08X: unsupported type %d, skipping", path, e.uuid, typ)
		return nil
	}
	// The track stream starts one byte in; its leading zero version bytes
	// double as the upper bytes of the type.
	t, err := trk.Decode(bytes.NewReader(payload[1:]), w.d.Options)
	if err != nil {
		return fmt.Errorf("leaf at 0x%X: embedded track: %w", e.offset, err)
	}
	w.items = append(w.items, Item{Path: path, UUID: e.uuid, Track: t})
	return nil
}

// payload returns the leaf's bytes with every additional-data chunk
// appended in chain order.
func (w *walker) payload(off uint64) ([]byte, error) {
	if err := w.r.SeekPointer(off); err != nil {
		return nil, err
	}
	// magic, flags, total size
	if err := w.r.Skip(16); err != nil {
		return nil, err
	}
	size, err := w.r.Int64()
	if err != nil {
		return nil, err
	}
	next, err := w.r.Pointer()
	if err != nil {
		return nil, err
	}
	data, err := w.r.Bytes(size)
	if err != nil {
		return nil, err
	}

	seen := map[uint64]bool{off: true}
	for next != 0 {
		if seen[next] {
			return nil, fmt.Errorf("%w: additional data at 0x%X", ErrCircularChain, next)
		}
		seen[next] = true
		if err := w.r.SeekPointer(next); err != nil {
			return nil, err
		}
		// magic
		if err := w.r.Skip(4); err != nil {
			return nil, err
		}
		if size, err = w.r.Int64(); err != nil {
			return nil, err
		}
		if next, err = w.r.Pointer(); err != nil {
			return nil, err
		}
		chunk, err := w.r.Bytes(size)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
	return data, nil
}
