package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeChunk(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	payload := base64.StdEncoding.EncodeToString(pcm)

	decoded, err := DecodeChunk(payload)
	if err != nil {
		t.Fatalf("DecodeChunk() failed: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("Decoded bytes %v, want %v", decoded, pcm)
	}
}

func TestDecodeChunk_DataURLPrefix(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30, 0x40}
	payload := "data:audio/pcm;base64," + base64.StdEncoding.EncodeToString(pcm)

	decoded, err := DecodeChunk(payload)
	if err != nil {
		t.Fatalf("DecodeChunk() failed: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("Decoded bytes %v, want %v", decoded, pcm)
	}
}

func TestDecodeChunk_Malformed(t *testing.T) {
	_, err := DecodeChunk("this is not base64!!!")
	if err == nil {
		t.Fatal("Expected error for malformed payload")
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestDecodeChunk_Empty(t *testing.T) {
	decoded, err := DecodeChunk("")
	if err != nil {
		t.Fatalf("DecodeChunk() failed on empty payload: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("Expected empty decode, got %d bytes", len(decoded))
	}
}
