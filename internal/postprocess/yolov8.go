package postprocess

import "math"

const dflRegMax = 16

// dflDecode performs the numerically-stable softmax-weighted sum over
// R=16 integer distance bins: Σ i·softmax(logits)ᵢ. Ported from the
// original's dfl_decode(data, reg_max).
func dflDecode(logits []float64) float64 {
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sumExp float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(v - maxV)
		exps[i] = e
		sumExp += e
	}
	var weighted float64
	for i, e := range exps {
		weighted += float64(i) * (e / sumExp)
	}
	return weighted
}

var yolov8Strides = [3]int{8, 16, 32}

// DecodeYOLOv8 implements spec.md §4.4 family B: three heads shaped
// [1, gridH, gridW, 4*R+C], R=16, decoding four DFL distance directions
// per cell then converting to corners. Ported from the original's
// yolov8().
func DecodeYOLOv8(heads [3]Head, numClasses int, confThreshold float64) []RawDetection {
	var out []RawDetection

	for headIdx, head := range heads {
		if head.GridH == 0 || head.GridW == 0 {
			continue
		}
		stride := yolov8Strides[headIdx]
		channels := 4*dflRegMax + numClasses

		for gy := 0; gy < head.GridH; gy++ {
			for gx := 0; gx < head.GridW; gx++ {
				base := (gy*head.GridW + gx) * channels
				if base+channels > len(head.Data) {
					continue
				}

				bestCls := 0
				bestScore := math.Inf(-1)
				for c := 0; c < numClasses; c++ {
					v := head.Data[base+4*dflRegMax+c]
					if v > bestScore {
						bestScore = v
						bestCls = c
					}
				}
				score := sigmoid(bestScore)
				if score < confThreshold {
					continue
				}

				dists := make([]float64, 4)
				for dir := 0; dir < 4; dir++ {
					logits := head.Data[base+dir*dflRegMax : base+(dir+1)*dflRegMax]
					dists[dir] = dflDecode(logits) * float64(stride)
				}
				left, top, right, bottom := dists[0], dists[1], dists[2], dists[3]

				cx := (float64(gx) + 0.5) * float64(stride)
				cy := (float64(gy) + 0.5) * float64(stride)
				x1 := cx - left
				y1 := cy - top
				x2 := cx + right
				y2 := cy + bottom

				out = append(out, RawDetection{
					ClassID:    bestCls,
					Confidence: score,
					CX:         (x1 + x2) / 2,
					CY:         (y1 + y2) / 2,
					W:          x2 - x1,
					H:          y2 - y1,
				})
			}
		}
	}
	return out
}
