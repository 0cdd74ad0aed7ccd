package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Payload layout, all integers as unsigned varints unless noted:
//
//	"FCE1" | status | len(body) body | count | count x (len(name) name len(value) value) | crc32 (4 bytes, big endian)
//
// The checksum covers every byte before it.
var codecMagic = []byte("FCE1")

const (
	crcSize = 4
	// maxStatus bounds the decoded status so a damaged varint cannot yield a huge int.
	maxStatus = 999
)

var errTruncated = errors.New("truncated payload")

// EncodeEntry serializes entry into the portable binary payload.
func EncodeEntry(entry *Entry) ([]byte, error) {
	if entry == nil {
		return nil, errors.New("nil entry")
	}
	if entry.Status < 0 || entry.Status > maxStatus {
		return nil, fmt.Errorf("status out of range: %d", entry.Status)
	}

	size := len(codecMagic) + len(entry.Body) + crcSize + 4*binary.MaxVarintLen64
	for _, field := range entry.Header {
		size += len(field.Name) + len(field.Value) + 2*binary.MaxVarintLen64
	}
	buf := make([]byte, 0, size)

	buf = append(buf, codecMagic...)
	buf = binary.AppendUvarint(buf, uint64(entry.Status))
	buf = appendBytes(buf, entry.Body)
	buf = binary.AppendUvarint(buf, uint64(len(entry.Header)))
	for _, field := range entry.Header {
		buf = appendBytes(buf, []byte(field.Name))
		buf = appendBytes(buf, []byte(field.Value))
	}
	buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf, nil
}

// DecodeEntry parses a payload produced by EncodeEntry. Every failure wraps
// ErrCorruptEntry.
func DecodeEntry(data []byte) (*Entry, error) {
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return entry, nil
}

func decodeEntry(data []byte) (*Entry, error) {
	if len(data) < len(codecMagic)+crcSize {
		return nil, errTruncated
	}
	if !bytes.Equal(data[:len(codecMagic)], codecMagic) {
		return nil, errors.New("bad magic")
	}

	payload, sum := data[:len(data)-crcSize], data[len(data)-crcSize:]
	if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(sum) {
		return nil, errors.New("checksum mismatch")
	}

	r := &payloadReader{buf: payload[len(codecMagic):]}
	status, err := r.uvarint()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if status > maxStatus {
		return nil, fmt.Errorf("status out of range: %d", status)
	}
	body, err := r.bytes()
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	count, err := r.uvarint()
	if err != nil {
		return nil, fmt.Errorf("header count: %w", err)
	}
	// 每个 header 至少占两个长度字节，借此拒绝伪造的超大 count。
	if count > uint64(len(r.buf))/2 {
		return nil, fmt.Errorf("header count too large: %d", count)
	}

	entry := &Entry{Status: int(status), Body: body}
	if count > 0 {
		entry.Header = make([]HeaderField, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		name, err := r.bytes()
		if err != nil {
			return nil, fmt.Errorf("header %d name: %w", i, err)
		}
		value, err := r.bytes()
		if err != nil {
			return nil, fmt.Errorf("header %d value: %w", i, err)
		}
		entry.Header = append(entry.Header, HeaderField{Name: string(name), Value: string(value)})
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(r.buf))
	}
	return entry, nil
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

type payloadReader struct {
	buf []byte
}

func (r *payloadReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		return 0, errTruncated
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *payloadReader) bytes() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)) {
		return nil, errTruncated
	}
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = r.buf[n:]
	return out, nil
}
