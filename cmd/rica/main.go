package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RICA-Assistant/internal/assistant"
	"RICA-Assistant/internal/audio"
	"RICA-Assistant/internal/cli"
	"RICA-Assistant/internal/config"
	"RICA-Assistant/internal/knowledge"
	"RICA-Assistant/internal/llm/groq"
	"RICA-Assistant/internal/resolver"
	"RICA-Assistant/internal/speech/openaiaudio"
	"RICA-Assistant/pkg/logger"
	"RICA-Assistant/sdk/go/rica"
)

// main 是 RICA 终端前端的入口。
func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径")
		voiceMode  = flag.Bool("voice", false, "使用语音交互模式")
		textMode   = flag.Bool("text", false, "使用文本交互模式（默认）")
		showStatus = flag.Bool("status", false, "打印组件状态后退出")
		testAudio  = flag.Bool("test-audio", false, "检测音频设备后退出")
		host       = flag.String("host", "", "覆盖配置中的守护进程地址")
		port       = flag.Int("port", 0, "覆盖配置中的守护进程端口")
		debug      = flag.Bool("debug", false, "输出调试日志")
		logLevel   = flag.String("log-level", "", "日志级别: debug/info/warn/error")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		configPath: *configPath,
		voice:      *voiceMode,
		text:       *textMode,
		status:     *showStatus,
		testAudio:  *testAudio,
		host:       *host,
		port:       *port,
		debug:      *debug,
		logLevel:   *logLevel,
	// 中断（Ctrl-C）属于正常退出，只有真正的错误返回 1。
	}); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "rica: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	voice      bool
	text       bool
	status     bool
	testAudio  bool
	host       string
	port       int
	debug      bool
	logLevel   string
}

func run(ctx context.Context, opts options) error {
	if opts.voice && opts.text {
		return fmt.Errorf("--voice 与 --text 不能同时使用")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if opts.debug {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: cfg.Logging.Format}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// 设备探测不需要任何凭证，先于配置校验处理。
	if opts.testAudio {
		return runAudioTest(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// 交互模式下语音组件按可选处理，缺少凭证时仍可使用文本对话。
	a, err := buildAssistant(cfg, opts.voice, !opts.text)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	if opts.status {
		return printStatus(ctx, a, fmt.Sprintf("http://%s", cfg.Server.Address()))
	}

	runner := cli.NewRunner(a, cfg.Resolver.DefaultInquirer, os.Stdin, os.Stdout)
	switch {
	case opts.voice:
		return runner.RunVoice(ctx)
	case opts.text:
		return runner.RunText(ctx)
	default:
		return runner.RunInteractive(ctx)
	}
}

// applyOverrides 将命令行里的地址覆盖写回配置，--status 据此定位守护进程。
func applyOverrides(cfg *config.Config, opts options) {
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
}

func buildAssistant(cfg *config.Config, voiceRequired, voiceOptional bool) (*assistant.Assistant, error) {
	llmClient, err := groq.NewClient(groq.Config{
		APIKey:  cfg.LLM.Groq.APIKey,
		BaseURL: cfg.LLM.Groq.BaseURL,
		Model:   cfg.LLM.Groq.Model,
		Timeout: cfg.LLM.Groq.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	resolverOpts := []resolver.Option{
		resolver.WithDefaultInquirer(cfg.Resolver.DefaultInquirer),
		resolver.WithReviewStage(cfg.Resolver.ReviewEnabled()),
	}
	if cfg.Resolver.KnowledgeSource != "" {
		provider, err := knowledge.LoadStaticProvider(cfg.Resolver.KnowledgeSource, cfg.Resolver.MaxKnowledge)
		if err != nil {
			return nil, err
		}
		resolverOpts = append(resolverOpts, resolver.WithKnowledgeProvider(provider))
	}
	res := resolver.New(llmClient, resolverOpts...)

	assistantOpts := []assistant.Option{}
	if voiceRequired || voiceOptional {
		speechClient, err := openaiaudio.NewClient(openaiaudio.Config{
			APIKey:   cfg.Speech.APIKey,
			BaseURL:  cfg.Speech.BaseURL,
			STTModel: cfg.Speech.RecognizeModel,
			TTSModel: cfg.Speech.SynthesisModel,
			Voice:    cfg.Speech.Voice,
			Timeout:  cfg.Speech.Timeout(),
		})
		switch {
		case err != nil && voiceRequired:
			return nil, err
		case err == nil:
			device := audio.NewManager(audio.Config{
				CaptureCommand:  cfg.Audio.CaptureCommand,
				PlaybackCommand: cfg.Audio.PlaybackCommand,
				SampleRate:      cfg.Audio.SampleRate,
				Channels:        cfg.Audio.Channels,
				CaptureSeconds:  cfg.Audio.CaptureSeconds,
			})
			assistantOpts = append(assistantOpts, assistant.WithVoice(speechClient, speechClient, device))
		}
	}

	return assistant.New(res, assistantOpts...)
}

func runAudioTest(cfg *config.Config) error {
	device := audio.NewManager(audio.Config{
		CaptureCommand:  cfg.Audio.CaptureCommand,
		PlaybackCommand: cfg.Audio.PlaybackCommand,
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.Channels,
		CaptureSeconds:  cfg.Audio.CaptureSeconds,
	})
	if err := device.TestSystem(); err != nil {
		return err
	}
	fmt.Println("音频设备正常。")
	return nil
}

// statusReport 在组件状态之外附带守护进程的可达性。
type statusReport struct {
	assistant.Status
	Daemon string `json:"daemon"`
}

func printStatus(ctx context.Context, a *assistant.Assistant, daemonURL string) error {
	report := statusReport{
		Status: a.Status(),
		Daemon: daemonHealth(ctx, daemonURL),
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

// daemonHealth 检查守护进程健康端点，失败时返回 unreachable 而不是报错，
// 状态输出要能在守护进程未启动时照常工作。
func daemonHealth(ctx context.Context, baseURL string) string {
	client, err := rica.NewClient(baseURL, &http.Client{Timeout: 2 * time.Second})
	if err != nil {
		return "unreachable"
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	health, err := client.Health(checkCtx)
	if err != nil {
		return "unreachable"
	}
	return health.Status
}
