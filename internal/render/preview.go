// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/wneessen/inkweather/internal/logger"
)

const (
	PreviewHTML = "dash-preview.html"
	PreviewPNG  = "dash-preview.png"

	// DefaultServeAddr is the listen address of the preview file server.
	DefaultServeAddr = ":8000"

	shutdownTimeout = 5 * time.Second
)

// Output is the directory the rendered HTML and PNG are written to. Files are overwritten
// on every cycle.
type Output struct {
	Dir string
}

func (o Output) HTMLPath() string {
	return filepath.Join(o.Dir, PreviewHTML)
}

func (o Output) PNGPath() string {
	return filepath.Join(o.Dir, PreviewPNG)
}

// WriteHTML creates the output directory if needed and writes the HTML file.
func (o Output) WriteHTML(html []byte) error {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(o.HTMLPath(), html, 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// BrowserCommand returns the command that opens path in the default browser on goos.
func BrowserCommand(goos, path string) []string {
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", path}
	default:
		return []string{"xdg-open", path}
	}
}

// OpenBrowser opens path in the default browser without waiting for it to exit.
func OpenBrowser(goos, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve preview path: %w", err)
	}
	args := BrowserCommand(goos, abs)
	if err = exec.Command(args[0], args[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// Serve serves dir over HTTP on addr until ctx is canceled.
func Serve(ctx context.Context, log *logger.Logger, addr, dir string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           http.FileServer(http.Dir(dir)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("serving preview", slog.String("addr", addr), slog.String("dir", dir))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("preview server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down preview server: %w", err)
	}
	return nil
}
