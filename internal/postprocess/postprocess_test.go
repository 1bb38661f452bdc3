package postprocess

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestNMSSameClassSuppression(t *testing.T) {
	dets := []Detection{
		{ClassID: 0, Confidence: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.8, X1: 1, Y1: 1, X2: 11, Y2: 11}, // heavy overlap, same class
		{ClassID: 1, Confidence: 0.7, X1: 1, Y1: 1, X2: 11, Y2: 11}, // heavy overlap, different class
	}
	kept := NMS(dets, 0.5)

	if len(kept) != 2 {
		t.Fatalf("kept %d detections, want 2 (one per class)", len(kept))
	}
	classes := map[int]bool{}
	for _, d := range kept {
		classes[d.ClassID] = true
	}
	if !classes[0] || !classes[1] {
		t.Fatalf("expected one kept detection per class, got %+v", kept)
	}
	// the higher-confidence class-0 box must be the one retained
	for _, d := range kept {
		if d.ClassID == 0 && d.Confidence != 0.9 {
			t.Fatalf("NMS kept the lower-confidence duplicate: %+v", d)
		}
	}
}

func TestNMSKeepsNonOverlapping(t *testing.T) {
	dets := []Detection{
		{ClassID: 0, Confidence: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.8, X1: 100, Y1: 100, X2: 110, Y2: 110},
	}
	kept := NMS(dets, 0.5)
	if len(kept) != 2 {
		t.Fatalf("kept %d detections, want 2 (no overlap)", len(kept))
	}
}

func TestLetterboxInverse(t *testing.T) {
	// model 640x640, original 1280x720: scale = min(640/1280, 640/720) = 0.5
	lb := Letterbox{ModelW: 640, ModelH: 640, OrigW: 1280, OrigH: 720}
	s := lb.Scale()
	if !almostEqual(s, 0.5, 1e-9) {
		t.Fatalf("Scale() = %v, want 0.5", s)
	}
	padX, padY := lb.PadXY()
	if !almostEqual(padX, 0, 1e-9) {
		t.Fatalf("PadX = %v, want 0", padX)
	}
	if !almostEqual(padY, (640.0-720*0.5)/2, 1e-9) {
		t.Fatalf("PadY = %v, want %v", padY, (640.0-720*0.5)/2)
	}

	// round-trip: original point -> model point -> inverse should recover it
	ox0, oy0 := 100.0, 200.0
	mx := ox0*s + padX
	my := oy0*s + padY
	ix, iy := lb.Invert(mx, my)
	if !almostEqual(ix, ox0, 1e-6) || !almostEqual(iy, oy0, 1e-6) {
		t.Fatalf("Invert(%v,%v) = (%v,%v), want (%v,%v)", mx, my, ix, iy, ox0, oy0)
	}
}

func TestLetterboxInvertClampsToImage(t *testing.T) {
	lb := Letterbox{ModelW: 640, ModelH: 640, OrigW: 1280, OrigH: 720}
	x, y := lb.Invert(-50, -50)
	if x != 0 || y != 0 {
		t.Fatalf("Invert(-50,-50) = (%v,%v), want clamped to (0,0)", x, y)
	}
	x, y = lb.Invert(10000, 10000)
	if x != 1280 || y != 720 {
		t.Fatalf("Invert(10000,10000) = (%v,%v), want clamped to (1280,720)", x, y)
	}
}

func TestDequantize(t *testing.T) {
	got := Dequantize(128, 128, 0.0078125)
	if !almostEqual(got, 0, 1e-9) {
		t.Fatalf("Dequantize(128,128,...) = %v, want 0", got)
	}
	got = Dequantize(255, 0, 1.0)
	if !almostEqual(got, 255, 1e-9) {
		t.Fatalf("Dequantize(255,0,1.0) = %v, want 255", got)
	}
}

func TestProcessUnknownFamily(t *testing.T) {
	_, err := Process(Input{Family: "yolov99"})
	if err == nil {
		t.Fatal("expected error for unknown family")
	}
}

func TestProcessZeroOutputYieldsNoDetections(t *testing.T) {
	// A zero-filled fused output (accelmock's stand-in shape) should
	// decode to zero detections once confidence gating is applied.
	numClasses := 80
	anchors := 100
	in := Input{
		Family:        FamilyYOLOv11,
		NumClasses:    numClasses,
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
		Letterbox:     Letterbox{ModelW: 640, ModelH: 640, OrigW: 640, OrigH: 640},
		YOLOv11Fused:  FusedOutput{NumAnchors: anchors, Data: make([]float64, (4+numClasses)*anchors)},
	}
	dets, err := Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 0 {
		t.Fatalf("got %d detections from all-zero input, want 0", len(dets))
	}
}
