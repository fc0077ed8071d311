package resolver

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/internal/knowledge"
	"RICA-Assistant/internal/llm"
	"RICA-Assistant/pkg/logger"
)

// Resolution 汇总一次问询的最终答复。
type Resolution struct {
	Response      string `json:"response"`
	OriginalQuery string `json:"original_query"`
}

// Resolver 协调两段式（起草、复审）大模型调用，是系统的业务核心。
type Resolver struct {
	llmClient       llm.Client
	defaultInquirer string
	reviewStage     bool
	knowledge       knowledge.Provider
	llmTimeout      time.Duration
}

// Option 定义可选的 Resolver 配置。
type Option func(*Resolver)

const defaultInquirerName = "friend"

// WithDefaultInquirer 设置未提供提问者身份时使用的默认标签。
func WithDefaultInquirer(name string) Option {
	return func(r *Resolver) {
		if strings.TrimSpace(name) != "" {
			r.defaultInquirer = name
		}
	}
}

// WithReviewStage 控制是否执行复审阶段。
func WithReviewStage(enabled bool) Option {
	return func(r *Resolver) {
		r.reviewStage = enabled
	}
}

// WithKnowledgeProvider 配置知识库，用于在起草前补充上下文。
func WithKnowledgeProvider(provider knowledge.Provider) Option {
	return func(r *Resolver) {
		r.knowledge = provider
	}
}

// WithLLMTimeout 设置单次解析允许的大模型调用总时长。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout <= 0 {
			r.llmTimeout = 0
			return
		}
		r.llmTimeout = timeout
	}
}

// New 创建一个 Resolver。
func New(llmClient llm.Client, opts ...Option) *Resolver {
	r := &Resolver{
		llmClient:       llmClient,
		defaultInquirer: defaultInquirerName,
		reviewStage:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve 接收提问者身份与问询文本，产出一条完整的自然语言答复。
// 起草失败时整次解析失败，不返回半成品。
func (r *Resolver) Resolve(ctx context.Context, inquirer, inquiry string) (*Resolution, error) {
	if r.llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}

	if strings.TrimSpace(inquiry) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "问询内容不能为空")
	}

	inquirer = strings.TrimSpace(inquirer)
	if inquirer == "" {
		inquirer = r.defaultInquirer
	}

	llmCtx := ctx
	if r.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, r.llmTimeout)
		defer cancel()
	}

	// 起草阶段。
	draft, err := r.llmClient.Complete(llmCtx, llm.Request{
		System: draftPersona,
		Prompt: buildDraftPrompt(inquirer, inquiry, r.collectKnowledge(inquiry)),
	})
	if err != nil {
		return nil, wrapUpstream(err, "起草阶段推理失败")
	}
	reply := strings.TrimSpace(draft.Reply)
	if reply == "" {
		return nil, xerrors.New(xerrors.CodeUpstreamUnavailable, "起草阶段返回空回复")
	}

	// 复审阶段。复审失败同样终止整次解析。
	if r.reviewStage {
		reviewed, err := r.llmClient.Complete(llmCtx, llm.Request{
			System: reviewPersona,
			Prompt: buildReviewPrompt(inquirer, inquiry, reply),
		})
		if err != nil {
			return nil, wrapUpstream(err, "复审阶段推理失败")
		}
		if trimmed := strings.TrimSpace(reviewed.Reply); trimmed != "" {
			reply = trimmed
		}
	}

	logger.Conversation().Info("问询已解析",
		slog.String("inquirer", inquirer),
		slog.Int("inquiry_len", len(inquiry)),
		slog.Int("response_len", len(reply)),
	)

	return &Resolution{
		Response:      reply,
		OriginalQuery: inquiry,
	}, nil
}

func wrapUpstream(err error, message string) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
	}
	return xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, message)
}

func (r *Resolver) collectKnowledge(inquiry string) []knowledge.Snippet {
	if r.knowledge == nil {
		return nil
	}
	return r.knowledge.Query(inquiry)
}

const draftPersona = "" +
	"You are a helpful assistant named RICA. " +
	"You work on Siam's team as an assistant and you need to help him with his questions and tasks. " +
	"Siam is an early career professional; he works as a full stack engineer at AskTuring AI. " +
	"Be the most friendly and helpful supportive assistant. " +
	"Make sure to provide full complete answers, and make no assumptions."

const reviewPersona = "" +
	"You are a support quality assurance specialist on Siam's team, reviewing answers drafted by an assistant. " +
	"You need to make sure the assistant is providing full complete answers and making no assumptions. " +
	"Don't make assumptions yourself either. " +
	"Don't be too formal, we are a chill and cool company, but maintain a professional and friendly tone throughout."

func buildDraftPrompt(inquirer, inquiry string, snippets []knowledge.Snippet) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s just reached out with a super important ask:\n%s\n\n", inquirer, inquiry))
	builder.WriteString(fmt.Sprintf("%s is the one that reached out. ", inquirer))
	builder.WriteString("Make sure to use everything you know to provide the best support possible. ")
	builder.WriteString("You must strive to provide a complete and accurate response to the inquirer's inquiry. ")
	builder.WriteString("Include references to everything you used to find the answer and maintain a helpful and friendly tone throughout.")

	if len(snippets) > 0 {
		builder.WriteString("\n\nBackground notes you may draw on:\n")
		for idx, snippet := range snippets {
			builder.WriteString(fmt.Sprintf("[%d] %s: %s\n",
				idx+1,
				strings.TrimSpace(snippet.Title),
				truncate(snippet.Content),
			))
			if idx >= 4 {
				break
			}
		}
	}

	return builder.String()
}

func buildReviewPrompt(inquirer, inquiry, draft string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Review the response drafted by the assistant for %s's inquiry:\n%s\n\n", inquirer, inquiry))
	builder.WriteString("Draft response:\n")
	builder.WriteString(draft)
	builder.WriteString("\n\n")
	builder.WriteString("Ensure that the answer is comprehensive, accurate, and adheres to the high-quality standards expected for inquirer support. ")
	builder.WriteString("Verify that all parts of the inquirer's inquiry have been addressed thoroughly, with a helpful and friendly tone. ")
	builder.WriteString("Reply with the final, detailed, and informative response ready to be sent to the inquirer, and nothing else.")
	return builder.String()
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) > 200 {
		return string([]rune(text)[:200]) + "..."
	}
	return text
}
