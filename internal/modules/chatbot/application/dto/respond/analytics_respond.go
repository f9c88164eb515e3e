package respond

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type QuestionItem struct {
	Content string `json:"content"`
	Count   int64  `json:"count"`
}

type SessionMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type SessionItem struct {
	SessionId   string           `json:"session_id"`
	ChatbotName string           `json:"chatbot_name,omitempty"`
	VisitorIp   string           `json:"visitor_ip"`
	UserAgent   string           `json:"user_agent"`
	CreatedAt   string           `json:"created_at"`
	Messages    []SessionMessage `json:"messages"`
}

type MessageTotals struct {
	TotalSessions         int64   `json:"total_sessions"`
	TotalMessages         int64   `json:"total_messages"`
	UserMessages          int64   `json:"user_messages"`
	AssistantMessages     int64   `json:"assistant_messages"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
}

// ChatbotAnalyticsRespond 单个机器人的统计
type ChatbotAnalyticsRespond struct {
	Uuid string `json:"uuid"`
	Name string `json:"name"`
	MessageTotals
	MessagesPerDay []DailyCount   `json:"messages_per_day"`
	TopQuestions   []QuestionItem `json:"top_questions"`
	RecentSessions []SessionItem  `json:"recent_sessions"`
}

type ChatbotStat struct {
	Id           int64   `json:"id"`
	Uuid         string  `json:"uuid"`
	Name         string  `json:"name"`
	Sessions     int64   `json:"sessions"`
	Messages     int64   `json:"messages"`
	LastActivity *string `json:"last_activity"`
}

// OverviewRespond 账户下全部机器人的统计
type OverviewRespond struct {
	TotalChatbots int `json:"total_chatbots"`
	MessageTotals
	MessagesPerDay []DailyCount  `json:"messages_per_day"`
	ChatbotStats   []ChatbotStat `json:"chatbot_stats"`
	RecentSessions []SessionItem `json:"recent_sessions"`
}
