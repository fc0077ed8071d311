package openaiaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"RICA-Assistant/internal/speech"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultSTTModel       = "whisper-1"
	defaultTTSModel       = "tts-1"
	defaultVoice          = "alloy"
	defaultTimeout        = 60 * time.Second
	defaultResponseFormat = "wav"
)

// Config 描述调用 OpenAI 兼容音频接口所需的信息。
type Config struct {
	APIKey   string
	BaseURL  string
	STTModel string
	TTSModel string
	Voice    string
	Timeout  time.Duration
}

// Client 同时实现语音识别与语音合成，复用同一套鉴权配置。
type Client struct {
	apiKey     string
	baseURL    string
	sttModel   string
	ttsModel   string
	voice      string
	httpClient *http.Client
}

var (
	_ speech.Recognizer  = (*Client)(nil)
	_ speech.Synthesizer = (*Client)(nil)
)

// NewClient 根据配置创建音频客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供音频服务 API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	sttModel := strings.TrimSpace(cfg.STTModel)
	if sttModel == "" {
		sttModel = defaultSTTModel
	}
	ttsModel := strings.TrimSpace(cfg.TTSModel)
	if ttsModel == "" {
		ttsModel = defaultTTSModel
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = defaultVoice
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		sttModel: sttModel,
		ttsModel: ttsModel,
		voice:    voice,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Transcribe 上传音频并返回识别出的文本。
// 识别结果为空时返回 speech.ErrUnintelligible。
func (c *Client) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("音频数据为空")
	}
	if strings.TrimSpace(format) == "" {
		format = defaultResponseFormat
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "capture."+format)
	if err != nil {
		return "", fmt.Errorf("构建转写请求失败: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("构建转写请求失败: %w", err)
	}
	if err := writer.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("构建转写请求失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("构建转写请求失败: %w", err)
	}

	endpoint := c.baseURL + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("构建转写请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("请求转写服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("转写服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("解析转写响应失败: %w", err)
	}

	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		return "", speech.ErrUnintelligible
	}
	return text, nil
}

// Synthesize 将文本合成为音频数据。
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("合成文本为空")
	}

	payload, err := json.Marshal(map[string]any{
		"model":           c.ttsModel,
		"voice":           c.voice,
		"input":           text,
		"response_format": defaultResponseFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化合成请求失败: %w", err)
	}

	endpoint := c.baseURL + "/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建合成请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求合成服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("合成服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取合成音频失败: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("合成服务返回空音频")
	}
	return data, nil
}
