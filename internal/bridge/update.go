package bridge

import (
	"encoding/json"
)

// Update 描述 Telegram webhook 推送的更新，只保留桥接关心的字段。
// 并非所有更新都是消息更新，缺失字段不是错误。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message 是更新中携带的聊天消息。
type Message struct {
	Chat *Chat  `json:"chat"`
	Text string `json:"text"`
}

// Chat 标识消息来源会话。
type Chat struct {
	ID int64 `json:"id"`
}

// Envelope 是进入派发队列的信封，带有投递标识便于日志关联。
type Envelope struct {
	DeliveryID string          `json:"delivery_id"`
	ReceivedAt int64           `json:"received_at"`
	Update     json.RawMessage `json:"update"`
}

// ParseUpdate 从原始 JSON 解析更新。
func ParseUpdate(raw []byte) (*Update, error) {
	var update Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// IsInquiry 判断更新是否携带可解析的文本消息。
func (u *Update) IsInquiry() bool {
	return u != nil && u.Message != nil && u.Message.Chat != nil && u.Message.Text != ""
}
