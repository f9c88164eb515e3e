package request

// SendMessageRequest 访客发送消息
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id"`
	Timezone  string `json:"timezone"` // 可选，IANA 时区名
}
