package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoJSON_SendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("expected auth header, got %q", got)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c, err := NewWithBaseURL(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewWithBaseURL: %v", err)
	}
	c.Headers = map[string]string{"Authorization": "Bearer k"}

	var out struct {
		Echo string `json:"echo"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, "v1/send", map[string]string{"msg": "hola"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo != "hola" {
		t.Fatalf("expected echo 'hola', got %q", out.Echo)
	}
}

func TestDoJSON_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(time.Second).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway || httpErr.Body != "boom" || !httpErr.Temporary() {
		t.Fatalf("unexpected error %#v", httpErr)
	}
}

func TestDoJSON_RelativeWithoutBaseURL(t *testing.T) {
	if err := New(0).DoJSON(context.Background(), http.MethodGet, "/x", nil, nil); err == nil {
		t.Fatalf("expected error for relative path without BaseURL")
	}
}
