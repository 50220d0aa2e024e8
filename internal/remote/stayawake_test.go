// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ihttp "github.com/wneessen/inkweather/internal/http"
	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/testhelper"
)

func TestStayAwake_Check(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"awake flag set to true", http.StatusOK, `{"awake": true}`, true},
		{"awake flag set to false", http.StatusOK, `{"awake": false}`, false},
		{"awake flag as string is ignored", http.StatusOK, `{"awake": "true"}`, false},
		{"awake flag as number is ignored", http.StatusOK, `{"awake": 1}`, false},
		{"missing awake flag", http.StatusOK, `{"other": true}`, false},
		{"malformed JSON", http.StatusOK, `{"awake": tr`, false},
		{"not found", http.StatusNotFound, `{"awake": true}`, false},
		{"server error", http.StatusInternalServerError, ``, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := ihttp.New(logger.Discard())
			client.Transport = testhelper.MockRoundTripper{Fn: testhelper.JSONResponse(tc.status, tc.body)}
			checker := NewStayAwake(client, logger.Discard(), "http://localhost:8000/stay_awake.json")
			if got := checker.Check(context.Background()); got != tc.want {
				t.Errorf("expected awake to be: %t, got %t", tc.want, got)
			}
		})
	}
	t.Run("transport errors fail closed", func(t *testing.T) {
		client := ihttp.New(logger.Discard())
		client.Transport = testhelper.MockRoundTripper{Fn: func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}}
		if NewStayAwake(client, logger.Discard(), "http://localhost:1/").Check(context.Background()) {
			t.Error("expected transport error to return false")
		}
	})
	t.Run("a live server answering true", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"awake":true}`))
		}))
		t.Cleanup(server.Close)
		checker := NewStayAwake(ihttp.New(logger.Discard()), logger.Discard(), server.URL)
		if !checker.Check(context.Background()) {
			t.Error("expected awake to be true")
		}
		if checker.URL() != server.URL {
			t.Errorf("expected URL to be: %s, got %s", server.URL, checker.URL())
		}
	})
	t.Run("a canceled context fails closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(server.Close)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if NewStayAwake(ihttp.New(logger.Discard()), logger.Discard(), server.URL).Check(ctx) {
			t.Error("expected canceled check to return false")
		}
	})
}
