// Package metadata reads and writes the bad-block table, wear-level
// table, and user-defined records into their reserved blocks, per
// spec.md §4.9 and the on-NAND layouts of §6.
package metadata

import (
	"encoding/binary"
	"time"
)

// Signature and version stamped on every record header, per spec.md §3.
const (
	Signature uint32 = 0x4D455441 // "META" read most-significant byte first; stored little-endian
	Version   uint32 = 1
)

// Record type codes for the user-metadata payload.
const (
	TypeJSON   uint32 = 1
	TypeBinary uint32 = 2
)

// Header is the 16-byte on-NAND metadata header, spec.md §3/§6.
type Header struct {
	Signature uint32
	Version   uint32
	Type      uint32
	Size      uint32
}

const HeaderSize = 16

// MarshalBinary packs h little-endian.
func (h Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Type)
	binary.LittleEndian.PutUint32(buf[12:16], h.Size)
	return buf
}

// UnmarshalHeader reads a Header from the first HeaderSize bytes of buf.
func UnmarshalHeader(buf []byte) (Header, bool) {
	if len(buf) < HeaderSize {
		return Header{}, false
	}
	return Header{
		Signature: binary.LittleEndian.Uint32(buf[0:4]),
		Version:   binary.LittleEndian.Uint32(buf[4:8]),
		Type:      binary.LittleEndian.Uint32(buf[8:12]),
		Size:      binary.LittleEndian.Uint32(buf[12:16]),
	}, true
}

// Valid reports whether h carries the expected signature and version.
func (h Header) Valid() bool {
	return h.Signature == Signature && h.Version == Version
}

// FileRecord is the per-file bookkeeping record stamped by save_data,
// supplementing spec.md §4.10's "File I/O" paragraph with the concrete
// shape the original nand_controller.py's save_data/load_data pair
// writes: name, size, page count and a timestamp, marshaled as the
// type=1 JSON payload.
type FileRecord struct {
	Name      string    `json:"name"`
	Size      uint64    `json:"size"`
	Pages     uint32    `json:"pages"`
	Timestamp time.Time `json:"timestamp"`
}

// BadBlockRecord is the bad-block table's on-NAND layout, spec.md §6:
// signature, version, count, followed by count u32 physical block
// numbers.
type BadBlockRecord struct {
	Blocks []uint32
}

// MarshalBinary packs r into the §6 bad-block table layout.
func (r BadBlockRecord) MarshalBinary() []byte {
	buf := make([]byte, 12+4*len(r.Blocks))
	binary.LittleEndian.PutUint32(buf[0:4], Signature)
	binary.LittleEndian.PutUint32(buf[4:8], Version)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(r.Blocks)))
	for i, b := range r.Blocks {
		binary.LittleEndian.PutUint32(buf[12+4*i:16+4*i], b)
	}
	return buf
}

// UnmarshalBadBlockRecord reverses MarshalBinary.
func UnmarshalBadBlockRecord(buf []byte) (BadBlockRecord, bool) {
	if len(buf) < 12 {
		return BadBlockRecord{}, false
	}
	sig := binary.LittleEndian.Uint32(buf[0:4])
	ver := binary.LittleEndian.Uint32(buf[4:8])
	if sig != Signature || ver != Version {
		return BadBlockRecord{}, false
	}
	count := binary.LittleEndian.Uint32(buf[8:12])
	need := 12 + 4*int(count)
	if len(buf) < need {
		return BadBlockRecord{}, false
	}
	blocks := make([]uint32, count)
	for i := range blocks {
		blocks[i] = binary.LittleEndian.Uint32(buf[12+4*i : 16+4*i])
	}
	return BadBlockRecord{Blocks: blocks}, true
}

// WearPair is one (block, erase_count) entry of a WearLevelRecord.
type WearPair struct {
	Block      uint32
	EraseCount uint32
}

// WearLevelRecord is the wear-level table's on-NAND layout, spec.md §6:
// signature, version, then (block, erase_count) pairs.
type WearLevelRecord struct {
	Pairs []WearPair
}

// MarshalBinary packs r into the §6 wear-table layout.
func (r WearLevelRecord) MarshalBinary() []byte {
	buf := make([]byte, 8+8*len(r.Pairs))
	binary.LittleEndian.PutUint32(buf[0:4], Signature)
	binary.LittleEndian.PutUint32(buf[4:8], Version)
	for i, p := range r.Pairs {
		off := 8 + 8*i
		binary.LittleEndian.PutUint32(buf[off:off+4], p.Block)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], p.EraseCount)
	}
	return buf
}

// UnmarshalWearLevelRecord reverses MarshalBinary. numPairs must be
// supplied by the caller since the layout, unlike BadBlockRecord, carries
// no explicit count field — the wear table spans exactly num_blocks
// entries, known from controller geometry.
func UnmarshalWearLevelRecord(buf []byte, numPairs int) (WearLevelRecord, bool) {
	need := 8 + 8*numPairs
	if len(buf) < need {
		return WearLevelRecord{}, false
	}
	sig := binary.LittleEndian.Uint32(buf[0:4])
	ver := binary.LittleEndian.Uint32(buf[4:8])
	if sig != Signature || ver != Version {
		return WearLevelRecord{}, false
	}
	pairs := make([]WearPair, numPairs)
	for i := range pairs {
		off := 8 + 8*i
		pairs[i] = WearPair{
			Block:      binary.LittleEndian.Uint32(buf[off : off+4]),
			EraseCount: binary.LittleEndian.Uint32(buf[off+4 : off+8]),
		}
	}
	return WearLevelRecord{Pairs: pairs}, true
}

// PadToPage returns data padded to size with 0xFF, or truncated if
// already longer (the caller is responsible for chunking across pages
// when data exceeds one page).
func PadToPage(data []byte, size int) []byte {
	if len(data) >= size {
		return data[:size]
	}
	out := make([]byte, size)
	copy(out, data)
	for i := len(data); i < size; i++ {
		out[i] = 0xFF
	}
	return out
}

// ChunkPages splits data into page-sized (0xFF-padded) chunks.
func ChunkPages(data []byte, pageSize int) [][]byte {
	var chunks [][]byte
	for off := 0; off < len(data); off += pageSize {
		end := off + pageSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, PadToPage(data[off:end], pageSize))
	}
	if len(chunks) == 0 {
		chunks = [][]byte{PadToPage(nil, pageSize)}
	}
	return chunks
}
