package journal

import (
	"encoding/binary"
	"io"
	"os"
)

// ReadSegment reads back the records written to a single segment file by a
// writer that performed a sequence of WriteRecord calls followed by exactly
// one Commit, without rotation — the usage pattern backfill capture relies
// on. It stops, without error, at the first record that doesn't fit cleanly
// within the file, reserving the trailing 8-byte commit checksum rather than
// parsing it as a record. The checksum is not verified.
func ReadSegment(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < segmentHeaderSize {
		return nil, errCorruptedFile
	}

	header := make([]byte, segmentHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint64(header[:8]) != magic {
		return nil, errCorruptedFile
	}

	remaining := size - segmentHeaderSize
	body := make([]byte, remaining)
	if _, err := io.ReadFull(f, body); err != nil {
		return nil, err
	}

	var records [][]byte
	for len(body) > 8 {
		sizeAndFlags, rest, ok := readUvarintLocal(body)
		if !ok {
			break
		}
		_, rest, ok = readUvarintLocal(rest) // timestamp delta, unused by replay
		if !ok {
			break
		}
		n := sizeAndFlags >> recordFlagShift
		// the final 8 bytes of the segment are always the commit checksum,
		// never part of a record's data.
		available := len(rest) - 8
		if available < 0 || n > uint64(available) {
			break
		}
		records = append(records, rest[:n])
		body = rest[n:]
	}
	return records, nil
}

func readUvarintLocal(data []byte) (uint64, []byte, bool) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, data, false
	}
	return v, data[n:], true
}
