package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/export"
)

func TestClient_SendRefreshFailure(t *testing.T) {
	var gotPath, gotTitle, gotPriority, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	cfg := &Config{Enabled: true, Server: server.URL + "/", Topic: "books", Priority: "default", Tags: "chart", Token: "tk", FailureThreshold: 3}
	client := NewClient(cfg, logger)

	err := client.SendRefreshFailure(context.Background(), 3, time.Time{}, errors.New("boom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/books" {
		t.Errorf("expected path /books, got %s", gotPath)
	}
	if gotTitle != "Order Book Refresh Failing" {
		t.Errorf("unexpected title: %s", gotTitle)
	}
	if gotPriority != "high" {
		t.Errorf("expected high priority, got %s", gotPriority)
	}
	if gotAuth != "Bearer tk" {
		t.Errorf("expected bearer token, got %s", gotAuth)
	}
	if !strings.Contains(gotBody, "Consecutive failures: 3") || !strings.Contains(gotBody, "never") || !strings.Contains(gotBody, "boom") {
		t.Errorf("unexpected body: %s", gotBody)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	cfg := &Config{Enabled: true, Server: server.URL, Topic: "books", Priority: "default", FailureThreshold: 1}

	err := NewClient(cfg, logger).SendRefreshRecovered(context.Background(), 4, time.Minute)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	n := New(&Config{Enabled: false}, logger)
	if _, ok := n.(*NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", n)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"valid", Config{Enabled: true, Topic: "t", Priority: "low", FailureThreshold: 2}, false},
		{"missing topic", Config{Enabled: true, Priority: "low", FailureThreshold: 2}, true},
		{"bad priority", Config{Enabled: true, Topic: "t", Priority: "loud", FailureThreshold: 2}, true},
		{"zero threshold", Config{Enabled: true, Topic: "t", Priority: "low"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatExportFailure_TruncatesErrors(t *testing.T) {
	result := &export.BatchResult{
		Total:  5,
		Failed: 5,
		Errors: []string{"e1", "e2", "e3", "e4", "e5"},
	}

	msg := FormatExportFailure(result, 2*time.Second, nil)
	if !strings.Contains(msg, "- e3") {
		t.Errorf("expected third error listed, got: %s", msg)
	}
	if strings.Contains(msg, "- e4") {
		t.Errorf("expected fourth error omitted, got: %s", msg)
	}
	if !strings.Contains(msg, "... and 2 more errors") {
		t.Errorf("expected overflow count, got: %s", msg)
	}
}
