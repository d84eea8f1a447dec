package save

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// Binary layout, little-endian:
//
//	u32 magic "ETER"
//	u32 version
//	u64 timestamp, ms since epoch
//	u32 rows, u32 cols
//	u32 placement count
//	per placement: u16 row, u16 col, u16 piece id, u8 rotation
//	u32 bitset byte length, then the bytes, LSB-first
const (
	saveMagic   uint32 = 0x45544552
	saveVersion uint32 = 1
)

// EncodeBinary serializes a state in the current binary format.
func EncodeBinary(st *State) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	var hdr [24]byte
	le.PutUint32(hdr[0:], saveMagic)
	le.PutUint32(hdr[4:], saveVersion)
	le.PutUint64(hdr[8:], uint64(st.Timestamp.UnixMilli()))
	le.PutUint32(hdr[16:], uint32(st.Rows))
	le.PutUint32(hdr[20:], uint32(st.Cols))
	buf.Write(hdr[:])

	var n [4]byte
	le.PutUint32(n[:], uint32(len(st.Steps)))
	buf.Write(n[:])
	for _, s := range st.Steps {
		var rec [7]byte
		le.PutUint16(rec[0:], uint16(s.Row))
		le.PutUint16(rec[2:], uint16(s.Col))
		le.PutUint16(rec[4:], s.Piece)
		rec[6] = s.Rotation
		buf.Write(rec[:])
	}

	var bits []byte
	if st.Used != nil {
		bits = st.Used.Bytes()
	}
	le.PutUint32(n[:], uint32(len(bits)))
	buf.Write(n[:])
	buf.Write(bits)

	return buf.Bytes()
}

// HasBinaryMagic reports whether the data starts with the save magic.
func HasBinaryMagic(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == saveMagic
}

// DecodeBinary parses the binary format, rejecting unknown versions
// and truncated files with ErrCorruptSave.
func DecodeBinary(data []byte) (*State, error) {
	le := binary.LittleEndian
	if len(data) < 28 {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrCorruptSave, len(data))
	}
	if le.Uint32(data) != saveMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorruptSave, le.Uint32(data))
	}
	if v := le.Uint32(data[4:]); v != saveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSave, v)
	}

	st := &State{
		Timestamp: time.UnixMilli(int64(le.Uint64(data[8:]))),
		Rows:      int(le.Uint32(data[16:])),
		Cols:      int(le.Uint32(data[20:])),
	}
	count := int(le.Uint32(data[24:]))
	off := 28
	if len(data) < off+count*7 {
		return nil, fmt.Errorf("%w: truncated placements", ErrCorruptSave)
	}
	st.Steps = make([]puzzle.Step, count)
	for i := 0; i < count; i++ {
		st.Steps[i] = puzzle.Step{
			Row:      int(le.Uint16(data[off:])),
			Col:      int(le.Uint16(data[off+2:])),
			Piece:    le.Uint16(data[off+4:]),
			Rotation: data[off+6],
		}
		off += 7
	}

	if len(data) < off+4 {
		return nil, fmt.Errorf("%w: truncated bitset length", ErrCorruptSave)
	}
	bitLen := int(le.Uint32(data[off:]))
	off += 4
	if len(data) < off+bitLen {
		return nil, fmt.Errorf("%w: truncated bitset", ErrCorruptSave)
	}
	st.Used = puzzle.UsedSetFromBytes(bitLen*8, data[off:off+bitLen])
	return st, nil
}
