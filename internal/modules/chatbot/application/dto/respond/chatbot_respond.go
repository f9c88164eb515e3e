package respond

type KnowledgeItem struct {
	Id        int64  `json:"id"`
	Type      string `json:"type"`
	FilePath  string `json:"file_path,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type ChatbotItem struct {
	Id           int64           `json:"id"`
	Uuid         string          `json:"uuid"`
	Name         string          `json:"name"`
	SystemPrompt string          `json:"system_prompt"`
	WidgetURL    string          `json:"widget_url"`
	EmbedCode    string          `json:"embed_code"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	Knowledge    []KnowledgeItem `json:"knowledge_bases"`
}
