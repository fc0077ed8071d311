package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	xerrors "RICA-Assistant/internal/errors"
	"RICA-Assistant/pkg/logger"
)

// Dispatcher 在 webhook 确认之后将更新交给队列异步处理。
// 确认与处理解耦：调用方在 Dispatch 返回后立即应答 webhook。
type Dispatcher struct {
	producer Producer
}

// NewDispatcher 构造 Dispatcher。
func NewDispatcher(producer Producer) *Dispatcher {
	return &Dispatcher{producer: producer}
}

// Dispatch 为更新分配投递标识并投递到队列。
func (d *Dispatcher) Dispatch(ctx context.Context, raw json.RawMessage) error {
	if d == nil || d.producer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置更新队列")
	}

	envelope := Envelope{
		DeliveryID: uuid.NewString(),
		ReceivedAt: time.Now().Unix(),
		Update:     raw,
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeBridgeDelivery, err, "序列化更新信封失败")
	}

	if err := d.producer.Publish(ctx, string(encoded)); err != nil {
		return xerrors.Wrap(xerrors.CodeBridgeDelivery, err, "更新入队失败")
	}
	logger.L().Debug("更新已入队", slog.String("delivery_id", envelope.DeliveryID))
	return nil
}
