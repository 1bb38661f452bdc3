package persistence

import (
	"path/filepath"
	"testing"

	"github.com/care/orion/internal/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "streams.msgpack"))

	want := []types.StreamConfig{
		{StreamID: "cam1", SourceURL: "rtsp://cam1", FrameSkip: 2, Models: []types.ModelConfig{
			{ArtifactPath: "m.bin", TaskLabel: "person", Family: "yolov8", InputWidth: 640, InputHeight: 640, ConfThreshold: 0.25, NMSThreshold: 0.45},
		}},
		{StreamID: "cam2", SourceURL: "rtsp://cam2", FrameSkip: 1},
	}

	if err := store.SaveStreams(want); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadStreams()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d configs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].StreamID != want[i].StreamID || got[i].SourceURL != want[i].SourceURL {
			t.Errorf("config[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nonexistent.msgpack"))
	got, err := store.LoadStreams()
	if err != nil {
		t.Fatalf("LoadStreams on missing file returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "streams.msgpack"))

	if err := store.SaveStreams([]types.StreamConfig{{StreamID: "cam1"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveStreams([]types.StreamConfig{{StreamID: "cam2"}, {StreamID: "cam3"}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadStreams()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].StreamID != "cam2" {
		t.Fatalf("got %+v, want the second save's contents", got)
	}
}
