package audio

import (
	"context"
	"testing"
	"time"

	xerrors "RICA-Assistant/internal/errors"
)

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Config{})
	if m.captureCmd != defaultCaptureCommand {
		t.Fatalf("captureCmd = %q, want %q", m.captureCmd, defaultCaptureCommand)
	}
	if m.playbackCmd != defaultPlaybackCommand {
		t.Fatalf("playbackCmd = %q, want %q", m.playbackCmd, defaultPlaybackCommand)
	}
	if m.sampleRate != defaultSampleRate {
		t.Fatalf("sampleRate = %d, want %d", m.sampleRate, defaultSampleRate)
	}
	if m.captureFor != defaultCaptureSeconds*time.Second {
		t.Fatalf("captureFor = %v, want %v", m.captureFor, defaultCaptureSeconds*time.Second)
	}
}

func TestTestSystemMissingCommand(t *testing.T) {
	m := NewManager(Config{CaptureCommand: "definitely-not-a-real-command-xyz"})
	err := m.TestSystem()
	if err == nil {
		t.Fatal("expected error for missing capture command")
	}
	if xerrors.CodeOf(err) != xerrors.CodeAudioDevice {
		t.Fatalf("code = %q, want %q", xerrors.CodeOf(err), xerrors.CodeAudioDevice)
	}
}

func TestCaptureFailureReportsDeviceError(t *testing.T) {
	m := NewManager(Config{CaptureCommand: "definitely-not-a-real-command-xyz"})
	_, err := m.Capture(context.Background())
	if err == nil {
		t.Fatal("expected error for missing capture command")
	}
	if xerrors.CodeOf(err) != xerrors.CodeAudioDevice {
		t.Fatalf("code = %q, want %q", xerrors.CodeOf(err), xerrors.CodeAudioDevice)
	}
}

func TestPlayEmptyData(t *testing.T) {
	m := NewManager(Config{})
	err := m.Play(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty audio data")
	}
	if xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("code = %q, want %q", xerrors.CodeOf(err), xerrors.CodeInvalidInput)
	}
}

func TestCaptureUsesFakeCommand(t *testing.T) {
	// 用 /bin/echo 模拟录音命令，验证参数透传与输出采集。
	m := NewManager(Config{CaptureCommand: "echo", CaptureSeconds: 1})
	data, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected captured data")
	}
}
