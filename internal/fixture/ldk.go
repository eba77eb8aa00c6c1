package fixture

// Record magics used by the LDK builders. The decoder only checks the
// entries magic; the others are written for realism.
const (
	LDKArchiveMagic = 0x4C444B00
	ldkNodeMagic    = 0x00015555
	ldkEntriesMagic = 0x00025555
	ldkCompactMagic = 0x00045555
	ldkLeafMagic    = 0x00035555
	ldkChunkMagic   = 0x00055555
)

// Ref is an entry table reference to a child node or data leaf.
type Ref struct {
	Offset uint64
	UUID   uint32
}

// LDKHeader appends the 48-byte archive header. Patch the root pointer at
// offset 8 once the root node has been placed.
func (b *Builder) LDKHeader(version int32, root uint64) *Builder {
	b.Int32(LDKArchiveMagic).Int32(version).Pointer(root)
	return b.Float64(0).Float64(0).Float64(0).Float64(0)
}

// LDKNode appends a node followed directly by its metadata block and the
// encoded entries table, and returns the node offset.
func (b *Builder) LDKNode(entries []byte, meta ...Entry) uint64 {
	off := b.Len()
	var m Builder
	m.Metadata(2, meta...)
	metaAt := off + 24
	entriesAt := metaAt + m.Len()
	b.Int32(ldkNodeMagic).Int32(0).Pointer(uint64(metaAt - 0x20)).Pointer(uint64(entriesAt))
	b.Raw(m.Bytes()).Raw(entries)
	return uint64(off)
}

// Entries encodes a table with the empty-slot layout; empty slots sit
// between the child and data references.
func Entries(children, data []Ref, empty int) []byte {
	var b Builder
	b.Int32(ldkEntriesMagic)
	b.Int32(int32(len(children) + len(data) + empty)).Int32(int32(len(children))).Int32(int32(len(data)))
	b.Pointer(0)
	b.refs(children)
	for i := 0; i < empty; i++ {
		b.Pointer(0).Int32(0)
	}
	b.refs(data)
	return b.Bytes()
}

// CompactEntries encodes a table without empty slots.
func CompactEntries(children, data []Ref) []byte {
	var b Builder
	b.Int32(ldkCompactMagic).Int32(int32(len(children))).Int32(int32(len(data)))
	b.refs(children)
	b.refs(data)
	return b.Bytes()
}

func (b *Builder) refs(rs []Ref) {
	for _, r := range rs {
		b.Pointer(r.Offset).Int32(int32(r.UUID))
	}
}

// LDKLeaf appends a data leaf carrying payload and returns its offset.
// next points at the first additional-data chunk, or 0.
func (b *Builder) LDKLeaf(payload []byte, next uint64) uint64 {
	off := b.Len()
	b.Int32(ldkLeafMagic).Int32(0).Int64(int64(len(payload))).Int64(int64(len(payload))).Pointer(next)
	b.Raw(payload)
	return uint64(off)
}

// LDKChunk appends an additional-data chunk and returns its offset.
func (b *Builder) LDKChunk(data []byte, next uint64) uint64 {
	off := b.Len()
	b.Int32(ldkChunkMagic).Int64(int64(len(data))).Pointer(next).Raw(data)
	return uint64(off)
}

// EmbeddedTrack wraps a TRK stream as a type-104 leaf payload. The type is
// read little-endian from the first four bytes, which overlap the leading
// zero bytes of the TRK version.
func EmbeddedTrack(trk []byte) []byte {
	return append([]byte{104}, trk...)
}

// LeafPayload builds a payload with an arbitrary little-endian type code.
func LeafPayload(typ uint32, body []byte) []byte {
	out := []byte{byte(typ), byte(typ >> 8), byte(typ >> 16), byte(typ >> 24)}
	return append(out, body...)
}
