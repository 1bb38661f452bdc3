package postprocess

import "math"

// FusedOutput is the single [1, 4+C, A] tensor family C emits, flattened
// NCHW-style as the original's yolov11() reads it:
// data[(4+c)*A+i] for class channels, data[0..3*A+i] for [cx,cy,w,h].
type FusedOutput struct {
	NumAnchors int // A = 80*80 + 40*40 + 20*20 = 8400 for 640 input
	Data       []float64
}

// DecodeYOLOv11 implements spec.md §4.4 family C: single fused output,
// scores already probability (no sigmoid — ported from the original's
// comment "score 已经是概率值，无需再做 sigmoid"), box channels already
// absolute center-size so grid anchor centers are never consulted.
// Ported from the original's yolov11().
func DecodeYOLOv11(out FusedOutput, numClasses int, confThreshold float64) []RawDetection {
	a := out.NumAnchors
	var dets []RawDetection

	for i := 0; i < a; i++ {
		bestCls := 0
		bestScore := math.Inf(-1)
		for c := 0; c < numClasses; c++ {
			v := out.Data[(4+c)*a+i]
			if v > bestScore {
				bestScore = v
				bestCls = c
			}
		}
		if bestScore < confThreshold {
			continue
		}

		cx := out.Data[0*a+i]
		cy := out.Data[1*a+i]
		w := out.Data[2*a+i]
		h := out.Data[3*a+i]

		dets = append(dets, RawDetection{ClassID: bestCls, Confidence: bestScore, CX: cx, CY: cy, W: w, H: h})
	}
	return dets
}
