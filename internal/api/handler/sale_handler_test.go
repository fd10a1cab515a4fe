package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSaleHandler_Receive(t *testing.T) {
	d := &stubDispatcher{}
	c, rec := newContext(http.MethodPost, "/events/sales",
		`{"reference":"s-1","userId":"u1","points":120,"product":"Lamp","occurredAt":"2024-05-01T10:00:00Z"}`)

	if err := NewSaleHandler(d).Receive(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.events) != 1 || d.events[0].Reference != "s-1" || d.events[0].Points != 120 {
		t.Errorf("enqueued = %+v", d.events)
	}
}

func TestSaleHandler_Receive_Invalid(t *testing.T) {
	d := &stubDispatcher{}
	c, _ := newContext(http.MethodPost, "/events/sales", `{"reference":"s-1","userId":"u1","points":0}`)

	err := NewSaleHandler(d).Receive(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if len(d.events) != 0 {
		t.Error("invalid event must not be enqueued")
	}
}

func TestSaleHandler_ReceiveBatch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantQueued int
	}{
		{"valid", `[{"reference":"a","userId":"u1","points":1},{"reference":"b","userId":"u2","points":2}]`, http.StatusAccepted, 2},
		{"empty", `[]`, http.StatusBadRequest, 0},
		{"one invalid", `[{"reference":"a","userId":"u1","points":1},{"userId":"u2","points":2}]`, http.StatusUnprocessableEntity, 0},
		{"not an array", `{"reference":"a"}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDispatcher{}
			c, rec := newContext(http.MethodPost, "/events/sales/batch", tt.body)

			err := NewSaleHandler(d).ReceiveBatch(c)
			code := rec.Code
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
			if len(d.events) != tt.wantQueued {
				t.Errorf("queued = %d, want %d", len(d.events), tt.wantQueued)
			}
		})
	}
}

func TestSaleHandler_NotAccepting(t *testing.T) {
	stopped := errors.New("sale dispatcher stopped")

	c, _ := newContext(http.MethodPost, "/events/sales", `{"reference":"s-1","userId":"u1","points":5}`)
	err := NewSaleHandler(&stubDispatcher{err: stopped}).Receive(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("single: expected 503, got %v", err)
	}
	if !errors.Is(err, stopped) {
		t.Errorf("cause not kept: %v", err)
	}

	c, _ = newContext(http.MethodPost, "/events/sales/batch", `[{"reference":"a","userId":"u1","points":1}]`)
	err = NewSaleHandler(&stubDispatcher{err: stopped}).ReceiveBatch(c)
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("batch: expected 503, got %v", err)
	}
}
