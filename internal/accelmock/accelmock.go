// Package accelmock provides a software stand-in for the accelerator
// driver bindings spec.md §1 explicitly treats as an external
// collaborator ("out of scope ... the accelerator driver bindings
// themselves (decode, resize/color-convert, inference)"). It implements
// registry.Runtime and worker.Accelerator so the pipeline is fully
// wireable and testable without real NPU/GPU hardware, the same way
// orion-prototipe's MockStream stands in for a real RTSP source.
package accelmock

import (
	"fmt"

	"github.com/care/orion/internal/postprocess"
	"github.com/care/orion/internal/registry"
	"github.com/care/orion/internal/types"
)

// Runtime implements registry.Runtime with in-process handles; no real
// driver calls are made.
type Runtime struct{}

type artifactHandle struct {
	path       string
	numClasses int
	family     string
}

// LoadArtifact does not read the artifact: it returns a fixed
// 1x3x640x640 input descriptor and a handle recording only the path,
// whatever the path names. Real deployments replace this Runtime with
// actual driver bindings, per spec.md §6 "Inference runtime".
func (Runtime) LoadArtifact(path string) (registry.Descriptor, any, error) {
	desc := registry.Descriptor{
		ArtifactPath: path,
		Inputs:       []registry.TensorDescriptor{{Name: "input", Dims: []int{1, 3, 640, 640}}},
		Outputs:      []registry.TensorDescriptor{{Name: "output"}},
	}
	return desc, &artifactHandle{path: path}, nil
}

// NewContext returns a handle carrying the requested core mask; there is
// no real per-core binding to perform without hardware.
func (Runtime) NewContext(master any, mask registry.CoreMask) (any, error) {
	h, ok := master.(*artifactHandle)
	if !ok {
		return nil, fmt.Errorf("accelmock: invalid master handle")
	}
	clone := *h
	return &clone, nil
}

// ReleaseContext is a no-op; there is no driver resource to free.
func (Runtime) ReleaseContext(handle any) error { return nil }

// UnloadArtifact is a no-op.
func (Runtime) UnloadArtifact(master any) error { return nil }

// Accelerator implements worker.Accelerator by synthesizing a
// zero-detection tensor of the shape Process expects for the task's
// declared family. It exercises the full worker → postprocess.Process
// path end to end without a real inference call.
type Accelerator struct{}

// Infer builds a postprocess.Input with correctly-shaped, empty tensors
// so the shared decode/NMS/letterbox path always runs, even though no
// detections are ever produced by this stand-in.
func (Accelerator) Infer(ctx *registry.Context, task types.InferTask) (postprocess.Input, error) {
	numClasses := 80 // COCO default; real deployments read this from the descriptor

	in := postprocess.Input{
		Family:        task.Family,
		NumClasses:    numClasses,
		ConfThreshold: task.ConfThreshold,
		NMSThreshold:  task.NMSThreshold,
	}

	switch task.Family {
	case postprocess.FamilyYOLOv5:
		in.YOLOv5Heads = zeroHeads(task.InputWidth, numClasses, 5)
	case postprocess.FamilyYOLOv8:
		in.YOLOv8Heads = zeroHeads(task.InputWidth, numClasses, 64)
	case postprocess.FamilyYOLOv11:
		a := 8400
		in.YOLOv11Fused = postprocess.FusedOutput{NumAnchors: a, Data: make([]float64, (4+numClasses)*a)}
	default:
		return postprocess.Input{}, fmt.Errorf("accelmock: unknown family %q", task.Family)
	}
	return in, nil
}

func zeroHeads(inputSize, numClasses, boxChannels int) [3]postprocess.Head {
	var heads [3]postprocess.Head
	strides := [3]int{8, 16, 32}
	for i, stride := range strides {
		grid := inputSize / stride
		channels := boxChannels + numClasses
		if boxChannels == 5 {
			// yolov5 entry layout is per-anchor, 3 anchors per cell
			channels = 3 * (5 + numClasses)
		}
		heads[i] = postprocess.Head{GridH: grid, GridW: grid, Data: make([]float64, grid*grid*channels)}
	}
	return heads
}
