package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Stream format expected from the browser client and forwarded to the
// transcription provider. No transcoding happens in this service.
const (
	Encoding   = "linear16" // PCM16
	SampleRate = 48000
	Channels   = 1
)

// ErrDecode indicates a malformed base64 audio payload
var ErrDecode = errors.New("malformed audio payload")

// DecodeChunk decodes one base64-encoded PCM16 chunk. A data-URL style
// prefix before the first comma ("data:...;base64,") is stripped first.
func DecodeChunk(payload string) ([]byte, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}
