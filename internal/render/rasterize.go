// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const (
	// DefaultRasterizer is the HTML to image converter shipped with wkhtmltopdf.
	DefaultRasterizer = "wkhtmltoimage"
	xvfbRun           = "xvfb-run"
)

var ErrNoOutput = errors.New("rasterizer produced no output")

// Rasterizer converts an HTML file into a PNG of a fixed size.
type Rasterizer interface {
	Rasterize(ctx context.Context, htmlPath, pngPath string, width, height int) error
}

// Wkhtml rasterizes with wkhtmltoimage. On Linux the call is wrapped in xvfb-run so it
// works on a headless device.
type Wkhtml struct {
	Binary  string
	UseXvfb bool
}

// NewWkhtml returns a Wkhtml rasterizer for the current platform.
func NewWkhtml() *Wkhtml {
	return &Wkhtml{Binary: DefaultRasterizer, UseXvfb: runtime.GOOS == "linux"}
}

// Command returns the command line used to rasterize htmlPath into pngPath.
func (w *Wkhtml) Command(htmlPath, pngPath string, width, height int) []string {
	binary := w.Binary
	if binary == "" {
		binary = DefaultRasterizer
	}
	cmd := []string{
		binary,
		"--width", strconv.Itoa(width),
		"--height", strconv.Itoa(height),
		htmlPath, pngPath,
	}
	if w.UseXvfb {
		cmd = append([]string{xvfbRun, "-a"}, cmd...)
	}
	return cmd
}

// Rasterize runs the rasterizer and waits for it. There is no timeout beyond ctx.
func (w *Wkhtml) Rasterize(ctx context.Context, htmlPath, pngPath string, width, height int) error {
	args := w.Command(htmlPath, pngPath, width, height)
	stderr := bytes.NewBuffer(nil)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("failed to run %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("failed to run %s: %w", args[0], err)
	}
	info, err := os.Stat(pngPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, pngPath)
	}
	return nil
}
