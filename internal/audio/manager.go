package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	xerrors "RICA-Assistant/internal/errors"
)

const (
	defaultCaptureCommand  = "arecord"
	defaultPlaybackCommand = "aplay"
	defaultSampleRate      = 16000
	defaultChannels        = 1
	defaultCaptureSeconds  = 10
)

// Config 描述音频设备的采样参数与底层命令。
type Config struct {
	CaptureCommand  string
	PlaybackCommand string
	Device          string
	SampleRate      int
	Channels        int
	CaptureSeconds  int
}

// Manager 通过系统命令访问录音与放音设备。
// 同一时刻只允许一个录音或放音操作，避免设备争用。
type Manager struct {
	captureCmd  string
	playbackCmd string
	device      string
	sampleRate  int
	channels    int
	captureFor  time.Duration

	mu sync.Mutex
}

// NewManager 创建音频设备管理器。
func NewManager(cfg Config) *Manager {
	captureCmd := strings.TrimSpace(cfg.CaptureCommand)
	if captureCmd == "" {
		captureCmd = defaultCaptureCommand
	}
	playbackCmd := strings.TrimSpace(cfg.PlaybackCommand)
	if playbackCmd == "" {
		playbackCmd = defaultPlaybackCommand
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = defaultChannels
	}
	captureSeconds := cfg.CaptureSeconds
	if captureSeconds <= 0 {
		captureSeconds = defaultCaptureSeconds
	}

	return &Manager{
		captureCmd:  captureCmd,
		playbackCmd: playbackCmd,
		device:      strings.TrimSpace(cfg.Device),
		sampleRate:  sampleRate,
		channels:    channels,
		captureFor:  time.Duration(captureSeconds) * time.Second,
	}
}

// TestSystem 检查录音与放音命令是否存在。
func (m *Manager) TestSystem() error {
	if _, err := exec.LookPath(m.captureCmd); err != nil {
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, fmt.Sprintf("找不到录音命令 %s", m.captureCmd))
	}
	if _, err := exec.LookPath(m.playbackCmd); err != nil {
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, fmt.Sprintf("找不到放音命令 %s", m.playbackCmd))
	}
	return nil
}

// Capture 录制一段音频并返回 WAV 数据。
func (m *Manager) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	args := []string{
		"-f", "S16_LE",
		"-r", strconv.Itoa(m.sampleRate),
		"-c", strconv.Itoa(m.channels),
		"-d", strconv.Itoa(int(m.captureFor.Seconds())),
		"-t", "wav",
	}
	if m.device != "" {
		args = append(args, "-D", m.device)
	}

	command := exec.CommandContext(ctx, m.captureCmd, args...)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return nil, xerrors.Wrap(xerrors.CodeAudioDevice, err, fmt.Sprintf("录音失败: %s", detail))
	}
	if stdout.Len() == 0 {
		return nil, xerrors.New(xerrors.CodeAudioDevice, "录音命令没有产生数据")
	}
	return stdout.Bytes(), nil
}

// Play 播放一段音频数据，阻塞直到播放完成或上下文取消。
func (m *Manager) Play(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return xerrors.New(xerrors.CodeInvalidInput, "音频数据为空")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 部分播放器不支持从标准输入读取 WAV，先落盘再播放。
	tmp, err := os.CreateTemp("", "rica-playback-*.wav")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, "创建临时音频文件失败")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, "写入临时音频文件失败")
	}
	if err := tmp.Close(); err != nil {
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, "关闭临时音频文件失败")
	}

	args := []string{}
	if m.device != "" {
		args = append(args, "-D", m.device)
	}
	args = append(args, filepath.Clean(tmpPath))

	command := exec.CommandContext(ctx, m.playbackCmd, args...)

	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return xerrors.Wrap(xerrors.CodeAudioDevice, err, fmt.Sprintf("播放失败: %s", detail))
	}
	return nil
}
