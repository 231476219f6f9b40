package rdb

import "encoding/binary"

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap <= c {
		return buf
	}
	if c < 16 {
		c = 16
	}
	for minCap > c {
		c <<= 1
	}
	old := buf
	buf = make([]byte, len(old), c)
	copy(buf, old)
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	off, buf := grow(buf, len(chunk))
	copy(buf[off:], chunk)
	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	off, buf := grow(buf, binary.MaxVarintLen64)
	off += binary.PutUvarint(buf[off:], v)
	return buf[:off]
}

func appendVarbytes(buf []byte, v []byte) []byte {
	buf = appendUvarint(buf, uint64(len(v)))
	return appendRaw(buf, v)
}

// readUvarint reads a uvarint from the front of data, returning the value
// and the remaining bytes. ok is false if data is exhausted or malformed.
func readUvarint(data []byte) (v uint64, rest []byte, ok bool) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, data, false
	}
	return v, data[n:], true
}

func readVarbytes(data []byte) (v []byte, rest []byte, ok bool) {
	n, rest, ok := readUvarint(data)
	if !ok || uint64(len(rest)) < n {
		return nil, data, false
	}
	return rest[:n], rest[n:], true
}
