package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderLen is the fixed header size: 5 magic bytes + 8 byte little-endian length.
const (
	MagicLen  = 5
	LengthLen = 8
	HeaderLen = MagicLen + LengthLen
)

// Magic identifies the protocol and its single supported version.
var Magic = [MagicLen]byte{'Z', 'B', 'X', 'D', 0x01}

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrBadHeader       = errors.New("frame: packet header invalid")
	ErrEmptyBody       = errors.New("frame: packet data length = 0")
	ErrTruncated       = errors.New("frame: truncated payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Frame is one decoded wire message.
type Frame struct {
	Length  uint64
	Payload []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 128 * 1024 * 1024,
	}
}

// Encode builds the full wire frame for payload. It never fails.
func Encode(payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf[0:MagicLen], Magic[:])
	binary.LittleEndian.PutUint64(buf[MagicLen:HeaderLen], uint64(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf
}

func EncodeHeader(length uint64) []byte {
	buf := make([]byte, HeaderLen)
	copy(buf[0:MagicLen], Magic[:])
	binary.LittleEndian.PutUint64(buf[MagicLen:HeaderLen], length)
	return buf
}

// ValidateHeader reports whether b starts with the exact magic bytes.
func ValidateHeader(b []byte) bool {
	if len(b) < MagicLen {
		return false
	}
	return bytes.Equal(b[:MagicLen], Magic[:])
}

// DecodeHeader checks the magic and returns the declared payload length.
// The magic is checked first, so a bad tag wins over any length value.
func DecodeHeader(b []byte) (uint64, error) {
	if len(b) != HeaderLen {
		return 0, fmt.Errorf("frame: invalid header length: %d", len(b))
	}
	if !ValidateHeader(b) {
		return 0, ErrBadHeader
	}
	return binary.LittleEndian.Uint64(b[MagicLen:HeaderLen]), nil
}

// Decode parses a complete in-memory frame. Zero-length payloads are accepted here;
// ReadFrame is the strict reader used on responses.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderLen {
		return Frame{}, ErrShortHeader
	}
	length, err := DecodeHeader(b[:HeaderLen])
	if err != nil {
		return Frame{}, err
	}
	body := b[HeaderLen:]
	if uint64(len(body)) < length {
		return Frame{}, ErrTruncated
	}
	payload := make([]byte, length)
	copy(payload, body[:length])
	return Frame{Length: length, Payload: payload}, nil
}

// WriteFrame writes payload as a single frame in one Write call.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if limits.MaxPayloadBytes > 0 && uint64(len(payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	_, err := w.Write(Encode(payload))
	return err
}

// ReadFrame reads one response frame from r, blocking until the declared payload has
// been fully received or the stream ends early.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	length, err := DecodeHeader(head[:])
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrEmptyBody
	}
	if limits.MaxPayloadBytes > 0 && length > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	if length > uint64(math.MaxInt) {
		return nil, ErrPayloadTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return payload, nil
}
