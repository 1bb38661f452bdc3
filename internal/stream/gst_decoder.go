package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/care/orion/internal/types"
)

// GstDecoder implements Decoder over a real GStreamer pipeline. Grounded
// on stream-capture/internal/rtsp/pipeline.go's element chain
// (rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
// appsink) and callbacks.go's OnNewSample frame extraction.
type GstDecoder struct {
	streamID string
	width    int
	height   int

	mu       sync.Mutex
	pipeline *gst.Pipeline
	sink     *app.Sink

	frames chan types.DecodedFrame

	frameCount uint64
	bytesRead  uint64
	dropped    uint64
}

// NewGstDecoder creates a decoder that will produce frames of the given
// output width/height once Open is called.
func NewGstDecoder(streamID string, width, height int) *GstDecoder {
	return &GstDecoder{streamID: streamID, width: width, height: height, frames: make(chan types.DecodedFrame, 4)}
}

// Open builds and starts the GStreamer pipeline, matching
// pipeline.go's CreatePipeline: protocols=4 (TCP-only, per opts), a
// fixed 200 ms rtspsrc latency buffer, then software decode/convert/scale
// to NV12 at the configured output size.
func (d *GstDecoder) Open(ctx context.Context, url string, opts OpenOptions) error {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("stream: create pipeline: %w", err)
	}

	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return fmt.Errorf("stream: create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", url)
	if opts.TCPTransport {
		rtspsrc.SetProperty("protocols", 4)
	}
	rtspsrc.SetProperty("latency", 200)
	rtspsrc.SetProperty("tcp-timeout", uint64(opts.ConnectTimeout.Microseconds()))

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return fmt.Errorf("stream: create rtph264depay: %w", err)
	}
	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return fmt.Errorf("stream: create avdec_h264: %w", err)
	}
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("stream: create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("stream: create videoscale: %w", err)
	}

	caps := gst.NewCapsFromString(fmt.Sprintf("video/x-raw,format=NV12,width=%d,height=%d", d.width, d.height))
	sinkElem, err := gst.NewElement("appsink")
	if err != nil {
		return fmt.Errorf("stream: create appsink: %w", err)
	}
	sinkElem.SetProperty("emit-signals", true)
	sinkElem.SetProperty("sync", false)
	sinkElem.SetProperty("caps", caps)
	sink := app.SinkFromElement(sinkElem)

	if err := pipeline.AddMany(rtspsrc, depay, decoder, convert, scale, sinkElem); err != nil {
		return fmt.Errorf("stream: add elements: %w", err)
	}
	if err := gst.ElementLinkMany(depay, decoder, convert, scale, sinkElem); err != nil {
		return fmt.Errorf("stream: link static chain: %w", err)
	}

	rtspsrc.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		sinkPad := depay.GetStaticPad("sink")
		if sinkPad == nil {
			slog.Error("stream: rtph264depay has no sink pad", "stream_id", d.streamID)
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			slog.Error("stream: pad link failed", "stream_id", d.streamID, "ret", ret)
		}
	})

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: d.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("stream: set playing: %w", err)
	}

	d.mu.Lock()
	d.pipeline = pipeline
	d.sink = sink
	d.mu.Unlock()

	return nil
}

func (d *GstDecoder) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("stream: failed to pull sample", "stream_id", d.streamID)
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("stream: empty buffer", "stream_id", d.streamID)
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(&d.frameCount, 1)
	atomic.AddUint64(&d.bytesRead, uint64(len(data)))

	frame := types.DecodedFrame{
		StreamID:   d.streamID,
		FrameID:    seq,
		SourceTSMS: time.Now().UnixMilli(),
		Width:      d.width,
		Height:     d.height,
		NV12:       frameData,
		TraceID:    uuid.New().String(),
	}

	select {
	case d.frames <- frame:
	default:
		atomic.AddUint64(&d.dropped, 1)
	}
	return gst.FlowOK
}

// DecodeFrame returns the next available frame, blocking briefly.
func (d *GstDecoder) DecodeFrame() (types.DecodedFrame, bool, error) {
	select {
	case f := <-d.frames:
		return f, true, nil
	case <-time.After(200 * time.Millisecond):
		return types.DecodedFrame{}, false, nil
	}
}

// SkipFrame drains one frame without returning it, avoiding the
// GPU→CPU transfer downstream callers would otherwise pay for.
func (d *GstDecoder) SkipFrame() bool {
	select {
	case <-d.frames:
		return true
	default:
		return false
	}
}

// Close tears down the pipeline.
func (d *GstDecoder) Close() error {
	d.mu.Lock()
	pipeline := d.pipeline
	d.mu.Unlock()
	if pipeline == nil {
		return nil
	}
	return pipeline.SetState(gst.StateNull)
}

// MonitorBus polls the pipeline bus and returns an error on an EOS or
// Error message (errors classified), or nil when ctx is cancelled; other
// message types, StateChanged included, are ignored. Grounded on
// stream-capture/internal/rtsp/monitor.go.
func (d *GstDecoder) MonitorBus(ctx context.Context) error {
	d.mu.Lock()
	pipeline := d.pipeline
	d.mu.Unlock()
	if pipeline == nil {
		return fmt.Errorf("stream: pipeline not initialized")
	}
	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}
			switch msg.Type() {
			case gst.MessageEOS:
				return fmt.Errorf("stream: end of stream")
			case gst.MessageError:
				gerr := msg.ParseError()
				return fmt.Errorf("stream: pipeline error [%s]: %s", classifyGstError(gerr), gerr.Error())
			}
		}
	}
}

// classifyGstError is a reduced form of the keyword classifier in
// stream-capture/internal/rtsp/errors.go's ClassifyGStreamerError: the
// same auth, then codec, then network precedence over shorter keyword
// lists.
func classifyGstError(gerr *gst.GError) string {
	if gerr == nil {
		return "unknown"
	}
	msg := strings.ToLower(gerr.Error() + " " + gerr.DebugString())
	switch {
	case containsAny(msg, "unauthorized", "401", "403", "forbidden", "credentials"):
		return "auth"
	case containsAny(msg, "codec", "decode", "format", "negotiation", "caps", "h264", "missing plugin"):
		return "codec"
	case containsAny(msg, "connection", "timeout", "unreachable", "network", "dns", "socket", "tcp", "rtsp"):
		return "network"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
