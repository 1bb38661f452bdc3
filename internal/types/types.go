// Package types holds the data model shared across the inference pipeline:
// stream/model configuration, decoded frames, inference tasks and results.
package types

import "time"

// ModelConfig describes one detector attached to a stream. Immutable once
// attached (spec.md §3).
type ModelConfig struct {
	ArtifactPath   string  `yaml:"artifact_path" msgpack:"artifact_path"`
	TaskLabel      string  `yaml:"task_label" msgpack:"task_label"`
	Family         string  `yaml:"family" msgpack:"family"` // "yolov5" | "yolov8" | "yolov11"
	InputWidth     int     `yaml:"input_width" msgpack:"input_width"`
	InputHeight    int     `yaml:"input_height" msgpack:"input_height"`
	ConfThreshold  float64 `yaml:"conf_threshold" msgpack:"conf_threshold"`
	NMSThreshold   float64 `yaml:"nms_threshold" msgpack:"nms_threshold"`
	ClassLabelsCSV string  `yaml:"class_labels_path,omitempty" msgpack:"class_labels_path,omitempty"`
}

// StreamConfig is the unit the Stream Manager owns and persists on every
// mutation (spec.md §3, §4.9).
type StreamConfig struct {
	StreamID  string        `yaml:"stream_id" msgpack:"stream_id"`
	SourceURL string        `yaml:"source_url" msgpack:"source_url"`
	FrameSkip int           `yaml:"frame_skip" msgpack:"frame_skip"`
	Models    []ModelConfig `yaml:"models" msgpack:"models"`
}

// DecodedFrame is the transient NV12 buffer produced by the Stream
// Supervisor's decode step; dropped once both resizes complete.
type DecodedFrame struct {
	StreamID    string
	FrameID     uint64
	SourceTSMS  int64
	PresentTSMS int64
	Width       int
	Height      int
	NV12        []byte
	TraceID     string
}

// Aggregator is the type-erased per-task auxiliary handle a queued task
// may carry (spec.md §9 "type-erased per-task auxiliary handle"). It lets
// the queue and worker stay ignorant of the concrete aggregator type.
type Aggregator interface {
	Add(result ModelResult) (FrameResult, bool)
}

// InferTask is produced per (frame, model) and consumed by exactly one
// worker.
type InferTask struct {
	StreamID      string
	SourceURL     string
	FrameID       uint64
	SourceTSMS    int64
	PresentTSMS   int64
	OrigWidth     int
	OrigHeight    int
	ArtifactPath  string
	TaskLabel     string
	Family        string
	ConfThreshold float64
	NMSThreshold  float64
	ClassLabels   []string
	Input         []byte // resized RGB buffer for this model's input size
	InputWidth    int
	InputHeight   int
	Aggregator    Aggregator // nil for single-model streams
}

// Detection is one bounding-box prediction in original-image coordinates.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	X1, Y1     float64
	X2, Y2     float64
}

// ModelResult is produced per task.
type ModelResult struct {
	TaskLabel    string
	ArtifactPath string
	DurationMS   float64
	Detections   []Detection
}

// FrameResult is produced when the aggregator completes a frame, or
// directly by the worker for single-model streams.
type FrameResult struct {
	StreamID    string
	SourceURL   string
	FrameID     uint64
	SourceTSMS  int64
	PresentTSMS int64
	OrigWidth   int
	OrigHeight  int
	Models      []ModelResult
}

// CachedFrame is a compressed preview frame held by the Rolling Image
// Cache.
type CachedFrame struct {
	StreamID  string
	FrameID   uint64
	TSMS      int64
	Width     int
	Height    int
	JPEG      []byte
}

// StreamState is the Stream Supervisor state machine (spec.md §4.8).
type StreamState int

const (
	StateStopped StreamState = iota
	StateStarting
	StateRunning
	StateReconnecting
	StateError
)

func (s StreamState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamStatus is a read-only snapshot built on query.
type StreamStatus struct {
	Config         StreamConfig
	State          StreamState
	DecodedFrames  uint64
	InferredFrames uint64
	QueueDropped   uint64
	ReconnectCount uint32
	DecodeFPS      float64
	InferFPS       float64
	LastError      string
	StartedAt      time.Time
	UptimeSeconds  float64
}
