// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// fallbackScale enlarges the 7x13 bitmap font so it stays readable on large panels.
	fallbackScale = 4
	glyphWidth    = 7
	lineHeight    = 16
	margin        = 4
)

// WriteFallbackPNG draws lines of plain text onto a white image of the given size and
// writes it to path. It is used when the rasterizer is unavailable.
func WriteFallbackPNG(path string, width, height int, lines []string) error {
	img := FallbackImage(width, height, lines)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fallback image: %w", err)
	}
	if err = png.Encode(file, img); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode fallback image: %w", err)
	}
	return file.Close()
}

// FallbackImage returns the rendered text as a greyscale image.
func FallbackImage(width, height int, lines []string) *image.Gray {
	scale := fallbackScale
	for scale > 1 && (width/scale < glyphWidth*10 || height/scale < lineHeight*2) {
		scale--
	}

	small := image.NewGray(image.Rect(0, 0, width/scale, height/scale))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)

	columns := (small.Bounds().Dx() - 2*margin) / glyphWidth
	drawer := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	y := margin + lineHeight
	for _, line := range wrap(lines, columns) {
		if y > small.Bounds().Dy() {
			break
		}
		drawer.Dot = fixed.P(margin, y)
		drawer.DrawString(line)
		y += lineHeight
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.NearestNeighbor.Scale(out, image.Rect(0, 0, small.Bounds().Dx()*scale, small.Bounds().Dy()*scale),
		small, small.Bounds(), draw.Src, nil)
	return out
}

// wrap breaks lines on word boundaries so no line is wider than columns cells.
func wrap(lines []string, columns int) []string {
	if columns < 1 {
		columns = 1
	}
	var out []string
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		cur := ""
		for _, word := range words {
			for runewidth.StringWidth(word) > columns {
				head := runewidth.Truncate(word, columns, "")
				if head == "" {
					head = string([]rune(word)[:1])
				}
				if cur != "" {
					out = append(out, cur)
					cur = ""
				}
				out = append(out, head)
				word = strings.TrimPrefix(word, head)
			}
			if word == "" {
				continue
			}
			switch {
			case cur == "":
				cur = word
			case runewidth.StringWidth(cur)+1+runewidth.StringWidth(word) <= columns:
				cur += " " + word
			default:
				out = append(out, cur)
				cur = word
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}
