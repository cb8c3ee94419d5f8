package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_PostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-" + body["code"]))
	}))
	defer srv.Close()

	c := NewClient("compile", srv.URL)
	resp, err := c.PostJSON(context.Background(), map[string]string{"code": "x"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if string(resp.Body) != "%PDF-x" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
}

func TestClient_PostJSON_StatusError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"json error and detail", `{"error":"compilation failed","detail":"missing \\end"}`, `compilation failed: missing \end`},
		{"json detail only", `{"detail":"Not found"}`, "Not found"},
		{"plain text", "  boom \n", "boom"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("compile", srv.URL).PostJSON(context.Background(), struct{}{})

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StatusError", err)
			}
			if se.StatusCode != http.StatusBadRequest {
				t.Errorf("StatusCode = %d", se.StatusCode)
			}
			if se.Message != tt.message {
				t.Errorf("Message = %q, want %q", se.Message, tt.message)
			}
			if !IsUnavailable(err) {
				t.Error("status errors must match ErrUnavailable")
			}
		})
	}
}

func TestClient_PostJSON_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient("lint", url).PostJSON(context.Background(), struct{}{})

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("request errors must match ErrUnavailable")
	}
	if !strings.Contains(err.Error(), "lint request") {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestClient_PostJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient("compile", srv.URL, WithTimeout(30*time.Millisecond))
	_, err := c.PostJSON(context.Background(), struct{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if !IsUnavailable(err) {
		t.Error("timeouts are transient failures")
	}
}

func TestClient_PostJSON_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	_, err := NewClient("compile", srv.URL, WithMaxBodyBytes(10)).PostJSON(context.Background(), struct{}{})
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Errorf("err = %v, want ErrResponseTooLarge", err)
	}
}

func TestClient_PostJSONDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"warnings":[{"line":3}]}`))
	}))
	defer srv.Close()

	var out struct {
		Warnings []struct {
			Line int `json:"line"`
		} `json:"warnings"`
	}
	if err := NewClient("lint", srv.URL).PostJSONDecode(context.Background(), struct{}{}, &out); err != nil {
		t.Fatalf("PostJSONDecode: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Line != 3 {
		t.Errorf("out = %+v", out)
	}
}

func TestClient_PostJSONDecode_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient("lint", srv.URL).PostJSONDecode(context.Background(), struct{}{}, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if IsUnavailable(err) {
		t.Error("decode errors are not transient service failures")
	}
}
