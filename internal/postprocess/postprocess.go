// Package postprocess implements the pure-CPU detector decoders of
// spec.md §4.4: three detector families, shared NMS, inverse-letterbox,
// and dequantization.
//
// Grounded directly and faithfully on the C++ original's
// src/inference/post_processor.cpp: sigmoid/iou/dequantize_int8/
// dfl_decode/scale_coords/nms are ports of the same-named C++ functions,
// and yolov5/yolov8/yolov11 below are the same dispatch the original's
// process() function selects on model_type.
package postprocess

import "math"

// Family tags, matching spec.md §4.4's three detector families.
const (
	FamilyYOLOv5  = "yolov5"  // anchor-based
	FamilyYOLOv8  = "yolov8"  // anchor-free, DFL regression
	FamilyYOLOv11 = "yolov11" // anchor-free, fused single output
)

// RawDetection is a decoded box in *model* input coordinates, before
// NMS and before inverse-letterbox.
type RawDetection struct {
	ClassID    int
	Confidence float64
	CX, CY, W, H float64 // center-form, model space
}

// Detection is a box after NMS, in model-input coordinates — the final
// inverse-letterbox step is applied by Process.
type Detection struct {
	ClassID    int
	Confidence float64
	X1, Y1, X2, Y2 float64
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Dequantize converts one quantized element to float32-equivalent
// precision: float = (q - zp) * scale. Ported from dequantize_int8 in
// the original; generalized beyond int8 since the Go runtime tensor may
// arrive as int16/int32 depending on the accelerator driver.
func Dequantize(q int64, zeroPoint int, scale float64) float64 {
	return float64(q-int64(zeroPoint)) * scale
}

func iou(a, b Detection) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)
	interW := math.Max(0, x2-x1)
	interH := math.Max(0, y2-y1)
	inter := interW * interH
	areaA := math.Max(0, a.X2-a.X1) * math.Max(0, a.Y2-a.Y1)
	areaB := math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS sorts by confidence descending and keeps a detection unless a
// higher-confidence kept detection of the same class has IoU above
// threshold. Different classes never suppress one another (spec.md
// §4.4 "shared sub-operations").
func NMS(dets []Detection, threshold float64) []Detection {
	sorted := append([]Detection(nil), dets...)
	// Insertion sort is fine here: per-frame detection counts are small
	// (tens, not thousands) after confidence gating.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Confidence > sorted[j-1].Confidence; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == d.ClassID && iou(k, d) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

// Letterbox holds the scale/pad parameters used to map model-space
// coordinates back to the original image (spec.md §4.4 "inverse
// letterbox", GLOSSARY "Letterbox").
type Letterbox struct {
	ModelW, ModelH int
	OrigW, OrigH   int
}

// Scale computes s = min(mw/ow, mh/oh).
func (l Letterbox) Scale() float64 {
	return math.Min(float64(l.ModelW)/float64(l.OrigW), float64(l.ModelH)/float64(l.OrigH))
}

// PadXY computes pad_x, pad_y = (mw - ow*s)/2, (mh - oh*s)/2.
func (l Letterbox) PadXY() (float64, float64) {
	s := l.Scale()
	return (float64(l.ModelW) - float64(l.OrigW)*s) / 2, (float64(l.ModelH) - float64(l.OrigH)*s) / 2
}

// Invert maps one model-space corner back to original-image space and
// clamps to the original image rectangle.
func (l Letterbox) Invert(x, y float64) (float64, float64) {
	s := l.Scale()
	padX, padY := l.PadXY()
	ox := (x - padX) / s
	oy := (y - padY) / s
	if ox < 0 {
		ox = 0
	}
	if ox > float64(l.OrigW) {
		ox = float64(l.OrigW)
	}
	if oy < 0 {
		oy = 0
	}
	if oy > float64(l.OrigH) {
		oy = float64(l.OrigH)
	}
	return ox, oy
}

// InvertDetections maps every kept detection's corners back to original
// image coordinates. Applied uniformly to all three families: spec.md
// §9's open question on family C is resolved here per DESIGN.md — the
// C++ original's yolov11() calls scale_coords() exactly like the other
// two families.
func InvertDetections(dets []Detection, lb Letterbox) []Detection {
	out := make([]Detection, len(dets))
	for i, d := range dets {
		x1, y1 := lb.Invert(d.X1, d.Y1)
		x2, y2 := lb.Invert(d.X2, d.Y2)
		out[i] = Detection{ClassID: d.ClassID, Confidence: d.Confidence, X1: x1, Y1: y1, X2: x2, Y2: y2}
	}
	return out
}
