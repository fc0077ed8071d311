package speech

import (
	"context"
	"errors"
)

// ErrUnintelligible 表示音频无法识别出有效文本。
// 调用方应提示用户重试，而不是视为系统故障。
var ErrUnintelligible = errors.New("speech: audio not intelligible")

// Recognizer 将录音数据转写为文本。
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Synthesizer 将文本合成为可播放的音频数据。
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
