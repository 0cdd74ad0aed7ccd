package cache

import (
	"bytes"
	"errors"
	"testing"
)

func TestCodecRoundTripBinary(t *testing.T) {
	body := make([]byte, 0, 512)
	for i := 0; i < 256; i++ {
		body = append(body, byte(i), 0)
	}
	entry := &Entry{
		Status: 200,
		Body:   body,
		Header: []HeaderField{
			{Name: "Zeta", Value: "last-alphabetically-first-inserted"},
			{Name: "content-type", Value: "application/octet-stream"},
			{Name: "X-Bytes", Value: "\x00\xff\xfe caf\xc3\xa9"},
			{Name: "Alpha", Value: ""},
		},
	}

	payload, err := EncodeEntry(entry)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := DecodeEntry(payload)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	assertEntryEqual(t, entry, got)
}

func TestCodecEmptyEntry(t *testing.T) {
	payload, err := EncodeEntry(&Entry{Status: 200})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := DecodeEntry(payload)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Status != 200 || len(got.Body) != 0 || len(got.Header) != 0 {
		t.Fatalf("unexpected decoded entry: %+v", got)
	}
}

func TestCodecRejectsDamagedPayloads(t *testing.T) {
	payload, err := EncodeEntry(sampleEntry())
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	flipped := append([]byte(nil), payload...)
	flipped[len(flipped)/2] ^= 0x01

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic only", []byte("FCE1")},
		{"wrong magic", append([]byte("XXXX"), payload[4:]...)},
		{"truncated", payload[:len(payload)-5]},
		{"bit flip", flipped},
		{"trailing", append(append([]byte(nil), payload...), 0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEntry(tc.data); !errors.Is(err, ErrCorruptEntry) {
				t.Fatalf("expected ErrCorruptEntry, got %v", err)
			}
		})
	}
}

func TestCodecRejectsInvalidStatus(t *testing.T) {
	if _, err := EncodeEntry(&Entry{Status: -1}); err == nil {
		t.Fatalf("negative status should be rejected")
	}
	if _, err := EncodeEntry(nil); err == nil {
		t.Fatalf("nil entry should be rejected")
	}
}

func TestCodecPayloadIsStable(t *testing.T) {
	a, _ := EncodeEntry(sampleEntry())
	b, _ := EncodeEntry(sampleEntry())
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding should be deterministic")
	}
	if !bytes.HasPrefix(a, []byte("FCE1")) {
		t.Fatalf("payload should start with magic")
	}
}
