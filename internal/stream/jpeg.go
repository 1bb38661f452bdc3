package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
)

// EncodeJPEG compresses a packed RGB buffer (3 bytes/pixel, width x
// height) at the given quality. Uses the standard library's image/jpeg
// because no third-party JPEG codec survives anywhere in the retained
// pack — the original system used a hardware RGA encoder (external
// accelerator), which is out of scope here the same way spec.md §1
// scopes out "the accelerator driver bindings themselves ... and JPEG
// encoding"; this is the CPU stand-in so the cache has real bytes to
// hold. See DESIGN.md for the stdlib-justification entry.
func EncodeJPEG(rgb []byte, width, height, quality int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 3
			if o+2 >= len(rgb) {
				continue
			}
			img.Set(x, y, color.RGBA{R: rgb[o], G: rgb[o+1], B: rgb[o+2], A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
