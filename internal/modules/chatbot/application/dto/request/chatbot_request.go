package request

// KnowledgeInput 知识来源：文本或 PDF 文件
type KnowledgeInput struct {
	KnowledgeType string `form:"knowledge_type"`
	Content       string `form:"content"`
	FileName      string `form:"-"`
	FileData      []byte `form:"-"`
	FileSize      int64  `form:"-"`
}

// CreateChatbotRequest multipart 表单
type CreateChatbotRequest struct {
	Name         string `form:"name"`
	SystemPrompt string `form:"system_prompt"`
	KnowledgeInput
}

type UpdateChatbotRequest struct {
	Name         string `json:"name" binding:"required"`
	SystemPrompt string `json:"system_prompt"`
}
