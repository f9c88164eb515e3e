package repository

import "context"

type ChatbotUnitOfWork interface {
	Transaction(ctx context.Context, fn func(chatbotRepo ChatbotRepository, knowledgeRepo KnowledgeRepository) error) error
}
