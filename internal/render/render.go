// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package render turns dashboard contexts into HTML and rasterizes the HTML into the PNG
// that is pushed to the panel.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/wneessen/inkweather/internal/presenter"
	"github.com/wneessen/inkweather/internal/system"
)

const (
	dashboardTemplate = "dashboard.html.tmpl"
	errorTemplate     = "error.html.tmpl"

	// ErrorTimeFormat is the layout of the "Last attempt" line on the error screen.
	ErrorTimeFormat = "2006-01-02 15:04:05"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// ErrorContext holds the values shown on the error screen.
type ErrorContext struct {
	Title     string
	Message   string
	Attempt   string
	Retry     string
	Status    system.Status
	Timestamp time.Time
	Width     int
	Height    int
}

// LastAttempt returns the formatted time of the failed attempt.
func (e ErrorContext) LastAttempt() string {
	return e.Timestamp.Format(ErrorTimeFormat)
}

// Templates holds the parsed dashboard and error screen templates.
type Templates struct {
	Dashboard *template.Template
	Error     *template.Template
}

// New parses the embedded templates with the given helper functions.
func New(funcs template.FuncMap) (*Templates, error) {
	tpls := new(Templates)

	tpl, err := template.New(dashboardTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+dashboardTemplate)
	if err != nil {
		return tpls, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	tpls.Dashboard = tpl

	tpl, err = template.New(errorTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+errorTemplate)
	if err != nil {
		return tpls, fmt.Errorf("failed to parse error template: %w", err)
	}
	tpls.Error = tpl

	return tpls, nil
}

// RenderDashboard executes the dashboard template.
func (t *Templates) RenderDashboard(w io.Writer, ctx presenter.DashboardContext) error {
	if err := t.Dashboard.Execute(w, ctx); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// RenderError executes the error screen template.
func (t *Templates) RenderError(w io.Writer, ctx ErrorContext) error {
	if err := t.Error.Execute(w, ctx); err != nil {
		return fmt.Errorf("failed to render error screen: %w", err)
	}
	return nil
}

// DashboardHTML renders the dashboard into a byte slice.
func (t *Templates) DashboardHTML(ctx presenter.DashboardContext) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := t.RenderDashboard(buf, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrorHTML renders the error screen into a byte slice.
func (t *Templates) ErrorHTML(ctx ErrorContext) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := t.RenderError(buf, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
