// Package gt1 implements a reader and writer for the GT1 file format, used
// for the distribution of Gigatron binary programs.
//
// A GT1 file is a sequence of segments, each [addrHi][addrLo][size][data],
// where a size byte of zero means 256 bytes. A zero byte in place of the
// next segment's address high byte terminates the stream and is followed by
// the two-byte start address (zero when the program has no entry point).
package gt1

import (
	"encoding/binary"
	"fmt"
	"os"
)

// MaxSegmentSize is the largest payload a single segment can carry.
const MaxSegmentSize = 256

// A Segment is a contiguous run of bytes loaded at a RAM address.
type Segment struct {
	Address uint16
	Data    []byte // 1 to 256 bytes
}

// A Program is a parsed GT1 file.
type Program struct {
	Segments     []Segment
	StartAddress uint16
}

// HasStartAddress reports whether the program declares an entry point.
// By convention a start address of zero means none.
func (p *Program) HasStartAddress() bool { return p.StartAddress != 0 }

// TotalBytes returns the payload size summed over all segments.
func (p *Program) TotalBytes() int {
	total := 0
	for _, seg := range p.Segments {
		total += len(seg.Data)
	}
	return total
}

// Open loads a program from a GT1 file.
func Open(path string) (*Program, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Parse decodes a GT1 byte stream. Malformed input (truncated segments or
// trailer, empty stream) returns an error and no partial program.
func Parse(data []byte) (*Program, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("too small, needs at least 3 bytes")
	}

	prog := new(Program)
	off := 0
	for off < len(data) {
		// A zero address high byte past the first segment is the end
		// marker, not a segment.
		if data[off] == 0x00 && off > 0 {
			break
		}
		if off+3 > len(data) {
			return nil, fmt.Errorf("incomplete segment header at offset %d", off)
		}

		addr := binary.BigEndian.Uint16(data[off:])
		size := int(data[off+2])
		if size == 0 {
			size = MaxSegmentSize
		}
		off += 3

		if off+size > len(data) {
			return nil, fmt.Errorf("incomplete segment data at offset %d", off)
		}
		seg := Segment{Address: addr, Data: make([]byte, size)}
		copy(seg.Data, data[off:])
		prog.Segments = append(prog.Segments, seg)
		off += size
	}

	if len(prog.Segments) == 0 {
		return nil, fmt.Errorf("no segments")
	}

	if off < len(data) && data[off] == 0x00 {
		off++
		if off+2 > len(data) {
			return nil, fmt.Errorf("truncated start address trailer")
		}
		prog.StartAddress = binary.BigEndian.Uint16(data[off:])
	}

	return prog, nil
}

// MarshalBinary encodes the program back into the GT1 stream format.
// Parse(MarshalBinary(p)) yields an equivalent program.
func (p *Program) MarshalBinary() ([]byte, error) {
	var out []byte
	for i, seg := range p.Segments {
		if len(seg.Data) == 0 || len(seg.Data) > MaxSegmentSize {
			return nil, fmt.Errorf("segment %d: invalid size %d", i, len(seg.Data))
		}
		// Past the first segment, a zero address high byte reads back as
		// the end marker.
		if i > 0 && seg.Address>>8 == 0 {
			return nil, fmt.Errorf("segment %d: page zero address %#04x only allowed for the first segment", i, seg.Address)
		}
		out = append(out, uint8(seg.Address>>8), uint8(seg.Address))
		out = append(out, uint8(len(seg.Data))) // 256 wraps to 0
		out = append(out, seg.Data...)
	}
	out = append(out, 0x00, uint8(p.StartAddress>>8), uint8(p.StartAddress))
	return out, nil
}
