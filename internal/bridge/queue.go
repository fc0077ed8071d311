package bridge

import (
	"context"
)

// Handler 处理一条从队列取出的 webhook 更新信封。
type Handler func(ctx context.Context, payload string) error

// Producer 负责向队列投递更新信封。
type Producer interface {
	Publish(ctx context.Context, payload string) error
	Close() error
}

// Consumer 负责从队列中消费更新信封。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
