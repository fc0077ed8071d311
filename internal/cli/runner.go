package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"RICA-Assistant/internal/assistant"
	"RICA-Assistant/internal/speech"
)

// Conversationalist 是交互循环依赖的助手能力。
type Conversationalist interface {
	ProcessText(ctx context.Context, inquirer, text string) (string, error)
	ProcessConversation(ctx context.Context, inquirer string, intercept assistant.Interceptor) (*assistant.ConversationTurn, error)
}

// StatusReporter 由支持状态查询的助手实现。
type StatusReporter interface {
	Status() assistant.Status
}

// Runner 驱动终端交互循环。输入输出可注入，便于测试。
type Runner struct {
	assistant Conversationalist
	inquirer  string
	in        io.Reader
	out       io.Writer

	readOnce sync.Once
	lines    chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// exitWords 中任意一个词都会结束交互循环，大小写不敏感。
var exitWords = map[string]bool{
	"quit": true,
	"exit": true,
	"bye":  true,
}

func isExitWord(text string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(text))]
}

// NewRunner 创建交互循环。
func NewRunner(a Conversationalist, inquirer string, in io.Reader, out io.Writer) *Runner {
	return &Runner{assistant: a, inquirer: inquirer, in: in, out: out}
}

// readLine 读取下一行输入。读取在独立协程进行，
// 上下文取消时立即返回，不会阻塞在终端读取上。
// 第二个返回值为 false 表示输入已结束。
func (r *Runner) readLine(ctx context.Context) (string, bool, error) {
	r.readOnce.Do(func() {
		r.lines = make(chan lineResult)
		go func() {
			defer close(r.lines)
			scanner := bufio.NewScanner(r.in)
			for scanner.Scan() {
				select {
				case r.lines <- lineResult{text: scanner.Text()}:
				case <-ctx.Done():
					return
				}
			}
			if err := scanner.Err(); err != nil {
				select {
				case r.lines <- lineResult{err: err}:
				case <-ctx.Done():
				}
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res, ok := <-r.lines:
		if !ok {
			return "", false, nil
		}
		return res.text, true, res.err
	}
}

// RunText 运行文本交互循环，直到用户退出、中断或输入结束。
// 单轮失败只提示错误，循环继续。
func (r *Runner) RunText(ctx context.Context) error {
	fmt.Fprintln(r.out, "RICA 已就绪。输入问题开始对话，输入 quit/exit/bye 退出。")

	for {
		fmt.Fprint(r.out, "> ")
		line, ok, err := r.readLine(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(r.out, "\n再见！")
			}
			return err
		}
		if !ok {
			fmt.Fprintln(r.out, "再见！")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isExitWord(line) {
			fmt.Fprintln(r.out, "再见！")
			return nil
		}

		reply, err := r.assistant.ProcessText(ctx, r.inquirer, line)
		if err != nil {
			fmt.Fprintf(r.out, "出错了: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "RICA: %s\n", reply)
	}
}

// RunVoice 运行语音交互循环。每轮录音后回显识别文本与回复，
// 识别到退出词时结束。
func (r *Runner) RunVoice(ctx context.Context) error {
	fmt.Fprintln(r.out, "RICA 语音模式已就绪。对着麦克风说话，说 quit/exit/bye 退出。")
	return r.voiceSession(ctx)
}

// voiceSession 执行语音轮次，直到识别到退出词或上下文取消。
// 退出词在转写后即被拦截，不会触发解析与答复播放。
func (r *Runner) voiceSession(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprintln(r.out, "正在聆听...")
		turn, err := r.assistant.ProcessConversation(ctx, r.inquirer, isExitWord)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, speech.ErrUnintelligible) {
				fmt.Fprintln(r.out, "没听清，请再说一遍。")
				continue
			}
			fmt.Fprintf(r.out, "出错了: %v\n", err)
			continue
		}

		if turn.Intercepted {
			fmt.Fprintln(r.out, "再见！")
			return nil
		}

		fmt.Fprintf(r.out, "你说: %s\n", turn.Heard)
		fmt.Fprintf(r.out, "RICA: %s\n", turn.Reply)
	}
}

// RunInteractive 运行可切换模式的交互循环。文本输入默认走问询，
// 命令 voice/text/status/quit 用于模式切换与状态查询。
func (r *Runner) RunInteractive(ctx context.Context) error {
	fmt.Fprintln(r.out, "RICA 已就绪。直接提问，或输入 voice / text / status，quit/exit/bye 退出。")

	for {
		fmt.Fprint(r.out, "> ")
		line, ok, err := r.readLine(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(r.out, "\n再见！")
			}
			return err
		}
		if !ok {
			fmt.Fprintln(r.out, "再见！")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "bye":
			fmt.Fprintln(r.out, "再见！")
			return nil
		case "text":
			fmt.Fprintln(r.out, "已是文本模式。")
			continue
		case "voice":
			if err := r.voiceSession(ctx); err != nil {
				return err
			}
			fmt.Fprintln(r.out, "已返回文本模式。")
			continue
		case "status":
			r.printStatus()
			continue
		}

		reply, err := r.assistant.ProcessText(ctx, r.inquirer, line)
		if err != nil {
			fmt.Fprintf(r.out, "出错了: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "RICA: %s\n", reply)
	}
}

func (r *Runner) printStatus() {
	reporter, ok := r.assistant.(StatusReporter)
	if !ok {
		fmt.Fprintln(r.out, "状态信息不可用。")
		return
	}
	st := reporter.Status()
	fmt.Fprintf(r.out, "started=%t voice=%t audio=%t\n", st.Started, st.VoiceEnabled, st.AudioReady)
}

// AskOnce 处理单个问题并输出回复，供非交互调用使用。
func (r *Runner) AskOnce(ctx context.Context, question string) error {
	reply, err := r.assistant.ProcessText(ctx, r.inquirer, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, reply)
	return nil
}
