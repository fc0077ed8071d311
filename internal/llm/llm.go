package llm

import "context"

// Request 描述一次发送给大模型的提示词。
type Request struct {
	System string
	Prompt string
}

// Response 是大模型推理得到的回复。
type Response struct {
	Reply string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
