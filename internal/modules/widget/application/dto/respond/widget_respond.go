package respond

type SendMessageRespond struct {
	Reply     string `json:"reply"`
	Timestamp string `json:"timestamp"`
	SessionId string `json:"session_id"`
}

type ChatbotInfoRespond struct {
	Name string `json:"name"`
	Uuid string `json:"uuid"`
}

type HealthRespond struct {
	Database bool `json:"database"`
	LLM      bool `json:"llm"`
}
