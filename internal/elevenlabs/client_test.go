package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hunterwarburton/fva/internal/core"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/"+DefaultVoiceID {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "k" {
			t.Errorf("missing api key header")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["model_id"] != DefaultModel || body["text"] != "hello" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	audio, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3fake" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		client *Client
		text   string
		want   string
	}{
		{name: "upstream rejects key", client: NewClient(Config{APIKey: "bad", BaseURL: srv.URL}), text: "hi", want: "invalid_api_key"},
		{name: "missing key", client: NewClient(Config{BaseURL: srv.URL}), text: "hi", want: "missing API key"},
		{name: "empty text", client: NewClient(Config{APIKey: "k", BaseURL: srv.URL}), text: "  ", want: "empty text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.Synthesize(context.Background(), tt.text)
			if !errors.Is(err, core.ErrSpeechSynthesis) {
				t.Fatalf("expected ErrSpeechSynthesis, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %v", tt.want, err)
			}
		})
	}
}
