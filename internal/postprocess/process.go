package postprocess

import "fmt"

// toCorners converts center-form (cx,cy,w,h) to corner-form (x1,y1,x2,y2).
func toCorners(r RawDetection) Detection {
	return Detection{
		ClassID:    r.ClassID,
		Confidence: r.Confidence,
		X1:         r.CX - r.W/2,
		Y1:         r.CY - r.H/2,
		X2:         r.CX + r.W/2,
		Y2:         r.CY + r.H/2,
	}
}

// Input bundles everything Process needs to decode, suppress, and map
// one model's raw output tensors back to original-image detections.
type Input struct {
	Family        string
	NumClasses    int
	ConfThreshold float64
	NMSThreshold  float64
	Letterbox     Letterbox

	// Exactly one of the following is populated, matching Family.
	YOLOv5Heads  [3]Head
	YOLOv8Heads  [3]Head
	YOLOv11Fused FusedOutput
}

// Process dispatches on Family (spec.md §4.4's "dispatches on
// detector-family tag"), decodes raw detections, converts to corners,
// runs NMS, then applies inverse-letterbox uniformly (see DESIGN.md for
// the family-C letterbox resolution).
func Process(in Input) ([]Detection, error) {
	var raw []RawDetection
	switch in.Family {
	case FamilyYOLOv5:
		raw = DecodeYOLOv5(in.YOLOv5Heads, in.NumClasses, in.ConfThreshold)
	case FamilyYOLOv8:
		raw = DecodeYOLOv8(in.YOLOv8Heads, in.NumClasses, in.ConfThreshold)
	case FamilyYOLOv11:
		raw = DecodeYOLOv11(in.YOLOv11Fused, in.NumClasses, in.ConfThreshold)
	default:
		return nil, fmt.Errorf("postprocess: unknown detector family %q", in.Family)
	}

	corners := make([]Detection, len(raw))
	for i, r := range raw {
		corners[i] = toCorners(r)
	}

	kept := NMS(corners, in.NMSThreshold)
	return InvertDetections(kept, in.Letterbox), nil
}
