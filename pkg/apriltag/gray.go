package apriltag

import "image"

// toGray converts src into dst using BT.601 luma weights, the same weights
// OpenCV uses for BGR2GRAY. dst is reused when it already has src's bounds.
func toGray(dst *image.Gray, src *image.RGBA) *image.Gray {
	b := src.Bounds()
	if dst == nil || dst.Bounds() != b {
		dst = image.NewGray(b)
	}

	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * dst.Stride
		row := src.Pix[si : si+w*4]
		out := dst.Pix[di : di+w]
		for x := range out {
			p := row[x*4 : x*4+3 : x*4+3]
			// 16.16 fixed point: 0.299, 0.587, 0.114
			out[x] = uint8((19595*uint32(p[0]) + 38470*uint32(p[1]) + 7471*uint32(p[2]) + 1<<15) >> 16)
		}
	}

	return dst
}
