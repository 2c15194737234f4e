package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

const defaultChunkSize = 4096

// Device acquires audio input streams.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields buffered chunks of an encoded audio sample until closed.
type Stream interface {
	// Next blocks until a chunk is available. It returns io.EOF once the
	// stream has been closed and drained.
	Next() ([]byte, error)
	// Close stops capture and unblocks Next.
	Close() error
}

// NoDevice is a Device that is never available.
type NoDevice struct{}

// Open implements Device.
func (NoDevice) Open(context.Context) (Stream, error) {
	return nil, fmt.Errorf("%w: no input device configured", ErrDeviceUnavailable)
}

// FileDevice replays an audio file as if it were captured from a microphone.
type FileDevice struct {
	path      string
	chunkSize int
}

// NewFileDevice creates a device that replays path in chunks of chunkSize bytes.
func NewFileDevice(path string, chunkSize int) *FileDevice {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &FileDevice{path: path, chunkSize: chunkSize}
}

// Open implements Device.
func (d *FileDevice) Open(context.Context) (Stream, error) {
	if d.path == "" {
		return nil, fmt.Errorf("%w: empty device path", ErrDeviceUnavailable)
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return newChunkStream(data, d.chunkSize), nil
}

// chunkStream hands out pre-split chunks and then blocks until closed,
// the way a live input keeps the stream open with nothing to deliver.
type chunkStream struct {
	mu     sync.Mutex
	chunks [][]byte
	closed chan struct{}
	once   sync.Once
}

func newChunkStream(data []byte, size int) *chunkStream {
	s := &chunkStream{closed: make(chan struct{})}
	for len(data) > 0 {
		n := min(size, len(data))
		s.chunks = append(s.chunks, data[:n])
		data = data[n:]
	}
	return s
}

func (s *chunkStream) Next() ([]byte, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()
	<-s.closed
	return nil, io.EOF
}

func (s *chunkStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
