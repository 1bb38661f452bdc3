package postprocess

import "math"

// cocoAnchors are the family-standard COCO anchor boxes per stride,
// from spec.md GLOSSARY: stride 8/16/32 rows of 3 (w,h) pairs.
var cocoAnchors = [3][3][2]float64{
	{{10, 13}, {16, 30}, {33, 23}},
	{{30, 61}, {62, 45}, {59, 119}},
	{{116, 90}, {156, 198}, {373, 326}},
}

var yolov5Strides = [3]int{8, 16, 32}

// Head is one decoded output tensor head for the anchor-based and
// DFL families: row-major [gridH][gridW][channels] float64 values
// already dequantized by the caller.
type Head struct {
	GridH, GridW int
	Data         []float64 // len == GridH*GridW*channels
}

// DecodeYOLOv5 implements spec.md §4.4 family A: three heads at strides
// 8/16/32, entry layout [cx,cy,w,h,obj,cls0..clsN-1] per anchor cell.
// Ported from the original post_processor.cpp's yolov5().
func DecodeYOLOv5(heads [3]Head, numClasses int, confThreshold float64) []RawDetection {
	var out []RawDetection
	const numAnchors = 3

	for headIdx, head := range heads {
		if head.GridH == 0 || head.GridW == 0 {
			continue
		}
		stride := yolov5Strides[headIdx]
		entry := 5 + numClasses

		for gy := 0; gy < head.GridH; gy++ {
			for gx := 0; gx < head.GridW; gx++ {
				for a := 0; a < numAnchors; a++ {
					base := ((gy*head.GridW+gx)*numAnchors + a) * entry
					if base+entry > len(head.Data) {
						continue
					}
					cxRaw := head.Data[base+0]
					cyRaw := head.Data[base+1]
					wRaw := head.Data[base+2]
					hRaw := head.Data[base+3]
					objRaw := head.Data[base+4]

					obj := sigmoid(objRaw)
					if obj < confThreshold {
						continue
					}

					bestCls := 0
					bestScore := math.Inf(-1)
					for c := 0; c < numClasses; c++ {
						v := head.Data[base+5+c]
						if v > bestScore {
							bestScore = v
							bestCls = c
						}
					}
					classScore := sigmoid(bestScore)
					conf := obj * classScore
					if conf < confThreshold {
						continue
					}

					anchorW := cocoAnchors[headIdx][a][0]
					anchorH := cocoAnchors[headIdx][a][1]

					cx := (sigmoid(cxRaw)*2 - 0.5 + float64(gx)) * float64(stride)
					cy := (sigmoid(cyRaw)*2 - 0.5 + float64(gy)) * float64(stride)
					w := math.Pow(sigmoid(wRaw)*2, 2) * anchorW
					h := math.Pow(sigmoid(hRaw)*2, 2) * anchorH

					out = append(out, RawDetection{ClassID: bestCls, Confidence: conf, CX: cx, CY: cy, W: w, H: h})
				}
			}
		}
	}
	return out
}
