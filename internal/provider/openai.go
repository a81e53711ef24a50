package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pearltechai/ai-travel-assistant/internal/chat"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible provider: chat completions, speech
// synthesis and audio transcription. Each call is a single blocking request
// with no internal retry; every failure is terminal for the current turn.
type Client struct {
	HTTPClient      *http.Client
	APIKey          string
	BaseURL         string
	ChatModel       string
	SpeechModel     string
	TranscribeModel string
	CacheDir        string
}

// NewClient constructs a Client with the standard endpoints and models.
func NewClient(apiKey string) *Client {
	return &Client{
		HTTPClient:      &http.Client{},
		APIKey:          apiKey,
		BaseURL:         defaultBaseURL,
		ChatModel:       "gpt-4o-mini",
		SpeechModel:     "tts-1",
		TranscribeModel: "whisper-1",
		CacheDir:        os.TempDir(),
	}
}

type chatCompletionsRequest struct {
	Model       string      `json:"model"`
	Messages    []chat.Turn `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int       `json:"index"`
	FinishReason string    `json:"finish_reason"`
	Message      chat.Turn `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// ChatReply sends the full transcript as conversational context and returns
// the assistant's reply text.
func (c *Client) ChatReply(ctx context.Context, turns []chat.Turn) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingCredential
	}

	reqBody, _ := json.Marshal(chatCompletionsRequest{
		Model:       c.ChatModel,
		Messages:    turns,
		Temperature: 0.7,
		MaxTokens:   400,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyReply
	}
	answer := strings.TrimSpace(cr.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyReply
	}
	return answer, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// SynthesizeSpeech requests an MP3 rendering of text and writes the audio
// bytes to a freshly named file in the scratch directory. The timestamp in the
// name keeps rapid successive turns from colliding.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, voice string) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingCredential
	}
	if voice == "" {
		voice = "alloy"
	}

	reqBody, _ := json.Marshal(speechRequest{
		Model:          c.SpeechModel,
		Voice:          voice,
		Input:          text,
		ResponseFormat: "mp3",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/speech", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading audio body: %w", err)
	}

	path := filepath.Join(c.CacheDir, fmt.Sprintf("speech_%d.mp3", time.Now().UnixNano()))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("writing audio file: %w", err)
	}
	return path, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe submits a recorded audio file as multipart form content and
// returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingCredential
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return "", fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copying recording: %w", err)
	}
	if err := writer.WriteField("model", c.TranscribeModel); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
