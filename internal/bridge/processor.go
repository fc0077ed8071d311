package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/internal/observability/alerting"
	"RICA-Assistant/pkg/logger"
	"RICA-Assistant/sdk/go/rica"
)

// 桥接处理失败时回复给用户的兜底消息。
const apologyText = "⚠️ Something went wrong. Please try again."

// AskClient 定义处理器所需的问询接口能力。调用走网络，不直接进程内解析。
type AskClient interface {
	Ask(ctx context.Context, queryText string) (rica.AskResponse, error)
}

// MessageSender 定义将答复送回会话所需的能力。
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Processor 负责从队列消费更新信封并完成转发与回信。
// 处理器对单条信封的失败从不向队列上抛，保证至多一次处理。
type Processor struct {
	askClient   AskClient
	sender      MessageSender
	consumer    Consumer
	workerCount int
	askTimeout  time.Duration
	logger      *slog.Logger
	alerter     alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithAskTimeout 设置调用问询接口的超时时间。
func WithAskTimeout(timeout time.Duration) ProcessorOption {
	return func(p *Processor) {
		if timeout > 0 {
			p.askTimeout = timeout
		}
	}
}

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(askClient AskClient, sender MessageSender, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		askClient:   askClient,
		sender:      sender,
		consumer:    consumer,
		workerCount: 1,
		askTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.workerCount <= 0 {
		p.workerCount = 1
	}
	return p
}

// Start 启动更新处理循环，直到上下文取消。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置更新消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, payload string) error {
	var envelope Envelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		p.logDebug("丢弃无法解析的信封", slog.String("error", err.Error()))
		return nil
	}

	update, err := ParseUpdate(envelope.Update)
	if err != nil {
		p.logDebug("丢弃无法解析的更新", slog.String("delivery_id", envelope.DeliveryID))
		return nil
	}
	// 不是消息更新时静默忽略，webhook 会推送多种形态的载荷。
	if !update.IsInquiry() {
		p.logDebug("忽略非消息更新", slog.String("delivery_id", envelope.DeliveryID))
		return nil
	}

	chatID := update.Message.Chat.ID
	if err := p.relay(ctx, envelope.DeliveryID, chatID, update.Message.Text); err != nil {
		p.sendApology(ctx, envelope.DeliveryID, chatID, err)
	}
	return nil
}

// relay 调用问询接口并将答复送回原会话。
func (p *Processor) relay(ctx context.Context, deliveryID string, chatID int64, text string) error {
	askCtx, cancel := context.WithTimeout(ctx, p.askTimeout)
	defer cancel()

	resolution, err := p.askClient.Ask(askCtx, text)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, "调用问询接口失败")
	}

	if err := p.sender.SendMessage(ctx, chatID, resolution.Response); err != nil {
		return xerrors.Wrap(xerrors.CodeBridgeDelivery, err, "回信发送失败")
	}

	logger.Conversation().Info("桥接答复已送达",
		slog.String("delivery_id", deliveryID),
		slog.Int64("chat_id", chatID),
		slog.Int("response_len", len(resolution.Response)),
	)
	return nil
}

// sendApology 尽力向用户发送兜底消息。兜底失败只记录与告警，不再上抛。
func (p *Processor) sendApology(ctx context.Context, deliveryID string, chatID int64, cause error) {
	logger.L().Error("桥接处理失败",
		slog.Any("error", cause),
		slog.String("delivery_id", deliveryID),
		slog.Int64("chat_id", chatID),
	)

	if err := p.sender.SendMessage(ctx, chatID, apologyText); err != nil {
		logger.L().Error("发送兜底消息失败",
			slog.Any("error", err),
			slog.String("delivery_id", deliveryID),
			slog.Int64("chat_id", chatID),
		)
		p.emitAlert(ctx, deliveryID, chatID, xerrors.CodeBridgeDelivery, "兜底消息发送失败")
		return
	}

	if xerrors.ShouldAlert(cause) {
		p.emitAlert(ctx, deliveryID, chatID, xerrors.CodeOf(cause), "桥接处理失败，已发送兜底消息")
	}
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger == nil {
		return
	}
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	p.logger.Debug(msg, args...)
}

func (p *Processor) emitAlert(ctx context.Context, deliveryID string, chatID int64, code xerrors.Code, message string) {
	if p.alerter == nil {
		return
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   xerrors.AttributesOf(code).Severity,
		DeliveryID: deliveryID,
		ChatID:     chatID,
		OccurredAt: time.Now(),
	}
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Warn("告警投递失败", slog.Any("error", err))
	}
}
