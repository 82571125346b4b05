package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// HeaderSize is the length of the big-endian frame length prefix.
const HeaderSize = 4

// DefaultMaxFrameSize bounds a single payload when no limit is configured.
const DefaultMaxFrameSize = 1 << 20

// ErrFrameTooLarge is fatal: the stream can no longer be resynchronised.
var ErrFrameTooLarge = errors.New("network: frame exceeds maximum size")

// DecodeError reports a complete frame whose payload was not a valid message.
// The frame has already been consumed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("network: decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode returns msg as a single length-prefixed frame.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// FrameBuffer holds the inbound and outbound bytes of one connection.
// It is not safe for concurrent use.
type FrameBuffer struct {
	in       []byte
	out      []byte
	maxFrame int
}

func NewFrameBuffer(maxFrame int) *FrameBuffer {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &FrameBuffer{maxFrame: maxFrame}
}

// Append buffers bytes read from the transport.
func (b *FrameBuffer) Append(p []byte) {
	b.in = append(b.in, p...)
}

// Next peels one frame off the inbound buffer. ok is false when the buffer
// holds only part of a frame; those bytes stay buffered.
func (b *FrameBuffer) Next() (msg Message, ok bool, err error) {
	if len(b.in) < HeaderSize {
		return Message{}, false, nil
	}
	size := binary.BigEndian.Uint32(b.in[:HeaderSize])
	if uint64(size) > uint64(b.maxFrame) {
		return Message{}, false, ErrFrameTooLarge
	}
	end := HeaderSize + int(size)
	if len(b.in) < end {
		return Message{}, false, nil
	}

	payload := b.in[HeaderSize:end]
	defer b.consume(end)

	if !utf8.Valid(payload) {
		return Message{}, true, &DecodeError{Err: errors.New("payload is not valid UTF-8")}
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, true, &DecodeError{Err: err}
	}
	return msg, true, nil
}

func (b *FrameBuffer) consume(n int) {
	rest := len(b.in) - n
	copy(b.in, b.in[n:])
	b.in = b.in[:rest]
}

// Buffered reports how many inbound bytes are waiting for a complete frame.
func (b *FrameBuffer) Buffered() int {
	return len(b.in)
}

// Queue encodes msg onto the outbound buffer.
func (b *FrameBuffer) Queue(msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	b.out = append(b.out, frame...)
	return nil
}

// Pending reports how many outbound bytes have not been written yet.
func (b *FrameBuffer) Pending() int {
	return len(b.out)
}

// Flush writes as much of the outbound buffer as t accepts and keeps the rest.
func (b *FrameBuffer) Flush(t Transport) (int, error) {
	if len(b.out) == 0 {
		return 0, nil
	}
	n, err := t.Write(b.out)
	if n > 0 {
		rest := len(b.out) - n
		copy(b.out, b.out[n:])
		b.out = b.out[:rest]
	}
	return n, err
}
