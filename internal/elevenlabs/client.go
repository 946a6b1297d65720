package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	// DefaultVoiceID is the "Bella" voice.
	DefaultVoiceID = "EXAVITQu4vr4xnAvoFDe"
	DefaultModel   = "eleven_monolingual_v1"
)

// Config configures the ElevenLabs client.
type Config struct {
	APIKey  string
	VoiceID string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client interacts with the ElevenLabs API.
type Client struct {
	apiKey     string
	voiceID    string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

type apiError struct {
	Detail json.RawMessage `json:"detail"`
}

// NewClient creates a new ElevenLabs client.
func NewClient(cfg Config) *Client {
	if cfg.APIKey == "" {
		logger.Warn("ElevenLabs API key is missing. Speech synthesis will fail.")
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// Synthesize converts text to MP3 audio with the configured voice.
// Every failure is reported as core.ErrSpeechSynthesis.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := c.textToSpeech(ctx, text)
	if err != nil {
		return nil, core.NewError("synthesize speech", core.ErrSpeechSynthesis, err)
	}
	return audio, nil
}

func (c *Client) textToSpeech(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("ElevenLabs client not configured (missing API key)")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot convert empty text to speech")
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	apiURL := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	logger.Info("Sending request to ElevenLabs TTS API for voice %s...", c.voiceID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Failed to send request to ElevenLabs: %v", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		detail := string(bodyBytes)
		var ae apiError
		if json.Unmarshal(bodyBytes, &ae) == nil && len(ae.Detail) > 0 {
			detail = string(ae.Detail)
		}
		errMsg := fmt.Sprintf("ElevenLabs API error (status %d): %s", resp.StatusCode, detail)
		logger.Error("%s", errMsg)
		return nil, errors.New(errMsg)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read ElevenLabs audio response body: %v", err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(audioData) == 0 {
		return nil, errors.New("ElevenLabs returned no audio")
	}

	logger.Info("Successfully received %d bytes of audio data from ElevenLabs.", len(audioData))
	return audioData, nil
}
