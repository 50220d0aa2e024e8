// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// LoadGray decodes the image at path and fits it onto a white greyscale canvas of the given
// size, keeping the aspect ratio.
func LoadGray(path string, width, height int) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return Fit(src, width, height), nil
}

// White returns a white greyscale image.
func White(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// Fit scales src into a width x height greyscale image, centered on white.
func Fit(src image.Image, width, height int) *image.Gray {
	dst := White(width, height)

	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
		return dst
	}
	if sb.Empty() {
		return dst
	}

	w, h := FitDimensions(sb.Dx(), sb.Dy(), width, height)
	x0, y0 := (width-w)/2, (height-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, sb, draw.Src, nil)
	return dst
}

// FitDimensions returns the largest size with the aspect ratio of w x h that fits into
// maxW x maxH.
func FitDimensions(w, h, maxW, maxH int) (int, int) {
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return int(float64(w) * ratio), int(float64(h) * ratio)
}
