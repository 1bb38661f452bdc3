package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/care/orion/internal/types"
)

// MockDecoder generates synthetic frames at a configured rate, for tests
// and environments without a GStreamer runtime. Grounded on
// orion-prototipe/internal/stream/mock.go's MockStream.
type MockDecoder struct {
	streamID string
	width    int
	height   int
	fps      float64

	mu      sync.Mutex
	seq     uint64
	running bool
	stopCh  chan struct{}
}

// NewMockDecoder creates a decoder that synthesizes frames of the given
// size at fps frames/second.
func NewMockDecoder(streamID string, width, height int, fps float64) *MockDecoder {
	return &MockDecoder{streamID: streamID, width: width, height: height, fps: fps}
}

// Open marks the decoder running; frames are synthesized on demand by
// DecodeFrame.
func (m *MockDecoder) Open(ctx context.Context, url string, opts OpenOptions) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	slog.Info("stream: mock decoder started", "stream_id", m.streamID, "source_url", url, "fps", m.fps)
	return nil
}

// DecodeFrame synthesizes one frame, pacing to the configured fps.
func (m *MockDecoder) DecodeFrame() (types.DecodedFrame, bool, error) {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return types.DecodedFrame{}, false, nil
	}

	if m.fps > 0 {
		time.Sleep(time.Duration(float64(time.Second) / m.fps))
	}

	seq := atomic.AddUint64(&m.seq, 1)
	nv12 := make([]byte, m.width*m.height*3/2)

	return types.DecodedFrame{
		StreamID:   m.streamID,
		FrameID:    seq,
		SourceTSMS: time.Now().UnixMilli(),
		Width:      m.width,
		Height:     m.height,
		NV12:       nv12,
		TraceID:    uuid.New().String(),
	}, true, nil
}

// SkipFrame advances the sequence counter without allocating a buffer.
func (m *MockDecoder) SkipFrame() bool {
	atomic.AddUint64(&m.seq, 1)
	return true
}

// Close marks the decoder stopped; later DecodeFrame calls return no
// frame.
func (m *MockDecoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		close(m.stopCh)
		m.running = false
	}
	return nil
}
