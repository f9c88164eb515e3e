package knowledge

import (
	"context"
	"strings"

	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	chatbotRepository "ChatNest/internal/modules/chatbot/domain/repository"
)

// separator 文档之间的分隔
const separator = "\n\n"

// ContextAssembler 将机器人的全部知识文档拼成一段上下文。
// 文档整体拼接，没有长度上限。
type ContextAssembler struct {
	repo chatbotRepository.KnowledgeRepository
}

func NewContextAssembler(repo chatbotRepository.KnowledgeRepository) *ContextAssembler {
	return &ContextAssembler{repo: repo}
}

// Assemble 最新创建的文档在前；没有文档时返回空串
func (a *ContextAssembler) Assemble(ctx context.Context, bot *chatbotEntity.Chatbot) (string, error) {
	docs, err := a.repo.ListByChatbot(ctx, bot.Id)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, separator), nil
}
