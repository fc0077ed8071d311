package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	xerrors "RICA-Assistant/internal/errors"
)

// Config 描述了 RICA 在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Speech   SpeechConfig   `yaml:"speech"`
	Audio    AudioConfig    `yaml:"audio"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Resolver ResolverConfig `yaml:"resolver"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address 拼接监听地址。
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider string     `yaml:"provider"`
	Groq     GroqConfig `yaml:"groq"`
}

// GroqConfig 描述调用 Groq（OpenAI 兼容）Chat Completions API 所需的信息。
type GroqConfig struct {
	APIKey         string `yaml:"api_key"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout 返回调用大模型的超时时间。
func (c GroqConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SpeechConfig 配置语音识别与语音合成能力。
type SpeechConfig struct {
	APIKey         string `yaml:"api_key"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	RecognizeModel string `yaml:"recognize_model"`
	SynthesisModel string `yaml:"synthesis_model"`
	Voice          string `yaml:"voice"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout 返回语音服务调用的超时时间。
func (c SpeechConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AudioConfig 配置本地音频采集与播放。
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	CaptureSeconds  int    `yaml:"capture_seconds"`
	CaptureCommand  string `yaml:"capture_command"`
	PlaybackCommand string `yaml:"playback_command"`
}

// CaptureWindow 返回单次录音的最长时间。
func (c AudioConfig) CaptureWindow() time.Duration {
	if c.CaptureSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.CaptureSeconds) * time.Second
}

// BridgeConfig 配置消息机器人桥接。
type BridgeConfig struct {
	Enabled           bool        `yaml:"enabled"`
	Token             string      `yaml:"token"`
	TokenEnv          string      `yaml:"token_env"`
	BotAPIBase        string      `yaml:"bot_api_base"`
	AskBase           string      `yaml:"ask_base"`
	AskTimeoutSeconds int         `yaml:"ask_timeout_seconds"`
	Queue             QueueConfig `yaml:"queue"`
}

// AskTimeout 返回桥接调用问询接口的超时时间。
func (c BridgeConfig) AskTimeout() time.Duration {
	if c.AskTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.AskTimeoutSeconds) * time.Second
}

// QueueConfig 描述 webhook 更新的派发队列。
type QueueConfig struct {
	Driver   string         `yaml:"driver"`
	Workers  int            `yaml:"workers"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列的连接参数。
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Queue     string `yaml:"queue"`
	BlockWait int    `yaml:"block_wait_seconds"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Queue      string `yaml:"queue"`
	Prefetch   int    `yaml:"prefetch"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ResolverConfig 配置问询解析管线。
type ResolverConfig struct {
	DefaultInquirer string `yaml:"default_inquirer"`
	ReviewStage     *bool  `yaml:"review_stage"`
	KnowledgeSource string `yaml:"knowledge_source"`
	MaxKnowledge    int    `yaml:"max_knowledge"`
}

// ReviewEnabled 返回是否启用复审阶段，未填写时默认开启。
func (c ResolverConfig) ReviewEnabled() bool {
	if c.ReviewStage == nil {
		return true
	}
	return *c.ReviewStage
}

// LoggingConfig 配置日志输出。
type LoggingConfig struct {
	Level        string             `yaml:"level"`
	Format       string             `yaml:"format"`
	OutputPaths  []string           `yaml:"output_paths"`
	Conversation ConversationConfig `yaml:"conversation"`
}

// ConversationConfig 配置对话转录日志。
type ConversationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load 解析指定路径的 YAML 配置文件。路径为空时返回默认配置。
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "读取配置文件失败")
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "解析配置失败")
		}
	}

	baseDir := "."
	if path != "" {
		baseDir = filepath.Dir(path)
	}
	cfg.applyDefaults(baseDir)
	cfg.resolveSecrets()

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8000
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.Groq.APIKeyEnv == "" {
		c.LLM.Groq.APIKeyEnv = "GROQ_API_KEY"
	}
	if c.LLM.Groq.Model == "" {
		c.LLM.Groq.Model = "llama-3.3-70b-versatile"
	}

	if c.Speech.APIKeyEnv == "" {
		c.Speech.APIKeyEnv = c.LLM.Groq.APIKeyEnv
	}
	if c.Speech.RecognizeModel == "" {
		c.Speech.RecognizeModel = "whisper-large-v3"
	}
	if c.Speech.SynthesisModel == "" {
		c.Speech.SynthesisModel = "tts-1"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "alloy"
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.CaptureSeconds <= 0 {
		c.Audio.CaptureSeconds = 10
	}

	if c.Bridge.TokenEnv == "" {
		c.Bridge.TokenEnv = "TELEGRAM_TOKEN"
	}
	if c.Bridge.AskBase == "" {
		c.Bridge.AskBase = fmt.Sprintf("http://%s", c.Server.Address())
	}
	if c.Bridge.Queue.Driver == "" {
		c.Bridge.Queue.Driver = "memory"
	}
	if c.Bridge.Queue.Workers <= 0 {
		c.Bridge.Queue.Workers = 2
	}

	if c.Resolver.DefaultInquirer == "" {
		c.Resolver.DefaultInquirer = "Siam"
	}
	if c.Resolver.KnowledgeSource != "" && !filepath.IsAbs(c.Resolver.KnowledgeSource) {
		c.Resolver.KnowledgeSource = filepath.Join(baseDir, c.Resolver.KnowledgeSource)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// resolveSecrets 将环境变量中的凭证填充到配置里。
func (c *Config) resolveSecrets() {
	if strings.TrimSpace(c.LLM.Groq.APIKey) == "" && c.LLM.Groq.APIKeyEnv != "" {
		c.LLM.Groq.APIKey = strings.TrimSpace(os.Getenv(c.LLM.Groq.APIKeyEnv))
	}
	if strings.TrimSpace(c.Speech.APIKey) == "" && c.Speech.APIKeyEnv != "" {
		c.Speech.APIKey = strings.TrimSpace(os.Getenv(c.Speech.APIKeyEnv))
	}
	if strings.TrimSpace(c.Bridge.Token) == "" && c.Bridge.TokenEnv != "" {
		c.Bridge.Token = strings.TrimSpace(os.Getenv(c.Bridge.TokenEnv))
	}
}

// Validate 校验启动所必须的配置项，缺失凭证视为致命错误。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Groq.APIKey) == "" {
		return xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("缺少大模型 API Key，请配置 llm.groq.api_key 或环境变量 %s", c.LLM.Groq.APIKeyEnv))
	}
	if c.Bridge.Enabled && strings.TrimSpace(c.Bridge.Token) == "" {
		return xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("桥接已启用但缺少机器人 Token，请配置 bridge.token 或环境变量 %s", c.Bridge.TokenEnv))
	}
	switch c.Bridge.Queue.Driver {
	case "", "memory", "redis", "rabbitmq":
	default:
		return xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("未知的队列驱动: %s", c.Bridge.Queue.Driver))
	}
	return nil
}
