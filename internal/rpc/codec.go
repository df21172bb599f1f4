package rpc

import (
	"encoding/binary"
	"encoding/json/v2"
	"fmt"
	"io"
	"sync"
)

// MaxFrameSize caps a single message. Snapshots dominate frame size; a
// store at full quota exports well under this.
const MaxFrameSize = 16 << 20

// frameReader decodes length-prefixed JSON frames from a stream.
type frameReader struct {
	r io.Reader
}

// frameWriter encodes length-prefixed JSON frames onto a stream.
// Safe for concurrent use; frames are written atomically.
type frameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

// Read decodes the next frame into dest. io.EOF on a clean close between
// frames; io.ErrUnexpectedEOF on a close mid-frame.
func (fr *frameReader) Read(dest any) error {
	var header [4]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("read frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length == 0 {
		return fmt.Errorf("zero-length frame")
	}
	if length > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", length, MaxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return fmt.Errorf("read frame body: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}

// Write encodes value as a single frame.
func (fw *frameWriter) Write(value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(body), MaxFrameSize)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := fw.w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
