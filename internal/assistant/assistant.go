package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"RICA-Assistant/internal/audio"
	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/internal/resolver"
	"RICA-Assistant/internal/speech"
	"RICA-Assistant/pkg/logger"
)

// InquiryResolver 是助手依赖的问询解析能力。
type InquiryResolver interface {
	Resolve(ctx context.Context, inquirer, inquiry string) (*resolver.Resolution, error)
}

// AudioDevice 是助手依赖的录放音能力。
type AudioDevice interface {
	TestSystem() error
	Capture(ctx context.Context) ([]byte, error)
	Play(ctx context.Context, data []byte) error
}

// Assistant 将解析、语音识别、语音合成与音频设备组合为完整会话能力。
// 文本模式只需要解析器，语音模式需要全部组件。
type Assistant struct {
	resolver    InquiryResolver
	recognizer  speech.Recognizer
	synthesizer speech.Synthesizer
	device      AudioDevice
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
}

// Option 用于定制助手的可选组件。
type Option func(*Assistant)

// WithVoice 启用语音能力。三个组件必须同时提供。
func WithVoice(rec speech.Recognizer, syn speech.Synthesizer, device AudioDevice) Option {
	return func(a *Assistant) {
		a.recognizer = rec
		a.synthesizer = syn
		a.device = device
	}
}

// WithLogger 覆盖默认日志器。
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = l
	}
}

// Interceptor 在转写完成后、解析之前检视识别文本。
// 返回 true 表示终止本轮，不再调用解析与合成。
type Interceptor func(heard string) bool

// ConversationTurn 描述一次语音会话的结果。
// Intercepted 为 true 时本轮在解析前被拦截，Reply 为空。
type ConversationTurn struct {
	Heard       string
	Reply       string
	Intercepted bool
}

// Status 汇总助手各组件的就绪情况。
type Status struct {
	Started      bool `json:"started"`
	VoiceEnabled bool `json:"voice_enabled"`
	AudioReady   bool `json:"audio_ready"`
}

// New 创建助手实例。
func New(res InquiryResolver, opts ...Option) (*Assistant, error) {
	if res == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未提供问询解析器")
	}
	a := &Assistant{resolver: res}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.L()
	}
	return a, nil
}

// Start 校验组件完整性。语音组件齐备时顺带探测音频设备。
func (a *Assistant) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}

	if a.voiceEnabled() {
		if err := a.device.TestSystem(); err != nil {
			a.logger.Warn("音频设备不可用，语音模式可能失败", slog.Any("error", err))
		}
	}

	a.started = true
	a.logger.Info("助手已启动", slog.Bool("voice", a.voiceEnabled()))
	return nil
}

// Stop 标记助手停止。进行中的会话由各自的上下文负责取消。
func (a *Assistant) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	a.started = false
	a.logger.Info("助手已停止")
}

// ProcessText 处理一轮文本问询并返回回复。
func (a *Assistant) ProcessText(ctx context.Context, inquirer, text string) (string, error) {
	result, err := a.resolver.Resolve(ctx, inquirer, text)
	if err != nil {
		return "", err
	}
	return result.Response, nil
}

// ProcessConversation 处理一轮完整语音会话：
// 录音、转写、解析、合成并播放回复。播放在独立协程执行，
// 返回前等待播放结束，保证设备在下一轮开始前空闲。
// intercept 不为 nil 且命中时在解析前终止本轮，例如识别到退出词。
func (a *Assistant) ProcessConversation(ctx context.Context, inquirer string, intercept Interceptor) (*ConversationTurn, error) {
	if !a.voiceEnabled() {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "语音组件未配置")
	}

	capture, err := a.device.Capture(ctx)
	if err != nil {
		return nil, err
	}

	heard, err := a.recognizer.Transcribe(ctx, capture, "wav")
	if err != nil {
		if errors.Is(err, speech.ErrUnintelligible) {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, "语音转写失败")
	}

	heard = strings.TrimSpace(heard)
	a.logger.Info("识别到语音问询", slog.String("text", heard))

	if intercept != nil && intercept(heard) {
		return &ConversationTurn{Heard: heard, Intercepted: true}, nil
	}

	result, err := a.resolver.Resolve(ctx, inquirer, heard)
	if err != nil {
		return nil, err
	}

	voice, err := a.synthesizer.Synthesize(ctx, result.Response)
	if err != nil {
		// 合成失败不丢弃文本回复，调用方仍可展示。
		a.logger.Warn("语音合成失败，仅返回文本", slog.Any("error", err))
		return &ConversationTurn{Heard: heard, Reply: result.Response}, nil
	}

	playErr := make(chan error, 1)
	go func() {
		playErr <- a.device.Play(ctx, voice)
	}()

	select {
	case err := <-playErr:
		if err != nil {
			a.logger.Warn("播放回复失败", slog.Any("error", err))
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &ConversationTurn{Heard: heard, Reply: result.Response}, nil
}

// Status 返回助手的当前状态。
func (a *Assistant) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	audioReady := false
	if a.voiceEnabled() {
		audioReady = a.device.TestSystem() == nil
	}
	return Status{
		Started:      a.started,
		VoiceEnabled: a.voiceEnabled(),
		AudioReady:   audioReady,
	}
}

func (a *Assistant) voiceEnabled() bool {
	return a.recognizer != nil && a.synthesizer != nil && a.device != nil
}

var _ AudioDevice = (*audio.Manager)(nil)
