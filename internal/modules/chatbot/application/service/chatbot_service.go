package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"ChatNest/internal/modules/chatbot/application/dto/request"
	"ChatNest/internal/modules/chatbot/application/dto/respond"
	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/internal/modules/chatbot/infrastructure/extraction"
	"ChatNest/internal/modules/chatbot/infrastructure/storage"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
)

const (
	maxNameLength = 255
	pdfDir        = "pdfs"
	timeLayout    = "2006-01-02 15:04:05"
)

// ChatbotService 控制台：机器人与知识库管理
type ChatbotService interface {
	List(ctx context.Context, accountUuid string) ([]*respond.ChatbotItem, error)
	Create(ctx context.Context, accountUuid string, req request.CreateChatbotRequest) (*respond.ChatbotItem, error)
	Get(ctx context.Context, accountUuid string, id int64) (*respond.ChatbotItem, error)
	Update(ctx context.Context, accountUuid string, id int64, req request.UpdateChatbotRequest) (*respond.ChatbotItem, error)
	Delete(ctx context.Context, accountUuid string, id int64) error
	AddKnowledge(ctx context.Context, accountUuid string, id int64, in request.KnowledgeInput) (*respond.KnowledgeItem, error)
	DeleteKnowledge(ctx context.Context, accountUuid string, id, docId int64) error
}

// Options 服务参数
type Options struct {
	PublicBaseURL string
	MaxPdfBytes   int64
}

type chatbotServiceImpl struct {
	chatbotRepo   repository.ChatbotRepository
	knowledgeRepo repository.KnowledgeRepository
	uow           repository.ChatbotUnitOfWork
	extractor     extraction.TextExtractor
	files         storage.FileStorage
	opts          Options
}

// NewChatbotService 构造函数
func NewChatbotService(
	chatbotRepo repository.ChatbotRepository,
	knowledgeRepo repository.KnowledgeRepository,
	uow repository.ChatbotUnitOfWork,
	extractor extraction.TextExtractor,
	files storage.FileStorage,
	opts Options,
) ChatbotService {
	if opts.MaxPdfBytes <= 0 {
		opts.MaxPdfBytes = 10 << 20
	}
	return &chatbotServiceImpl{
		chatbotRepo:   chatbotRepo,
		knowledgeRepo: knowledgeRepo,
		uow:           uow,
		extractor:     extractor,
		files:         files,
		opts:          opts,
	}
}

func (s *chatbotServiceImpl) List(ctx context.Context, accountUuid string) ([]*respond.ChatbotItem, error) {
	bots, err := s.chatbotRepo.ListByAccount(ctx, accountUuid)
	if err != nil {
		zlog.Error("list chatbots failed", zap.Error(err), zap.String("account", accountUuid))
		return nil, xerr.ErrServerError
	}

	ids := make([]int64, 0, len(bots))
	for _, b := range bots {
		ids = append(ids, b.Id)
	}
	docs, err := s.knowledgeRepo.ListByChatbots(ctx, ids)
	if err != nil {
		zlog.Error("list knowledge failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	byBot := make(map[int64][]*entity.KnowledgeDocument, len(bots))
	for _, d := range docs {
		byBot[d.ChatbotId] = append(byBot[d.ChatbotId], d)
	}

	items := make([]*respond.ChatbotItem, 0, len(bots))
	for _, b := range bots {
		items = append(items, s.toItem(b, byBot[b.Id]))
	}
	return items, nil
}

func (s *chatbotServiceImpl) Create(ctx context.Context, accountUuid string, req request.CreateChatbotRequest) (*respond.ChatbotItem, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	// 先完成解析与落盘，失败时不产生任何数据库写入
	doc, err := s.prepareDocument(ctx, req.KnowledgeInput)
	if err != nil {
		return nil, err
	}

	bot := &entity.Chatbot{
		AccountUuid:  accountUuid,
		Name:         name,
		SystemPrompt: strings.TrimSpace(req.SystemPrompt),
	}
	err = s.uow.Transaction(ctx, func(chatbotRepo repository.ChatbotRepository, knowledgeRepo repository.KnowledgeRepository) error {
		if err := chatbotRepo.CreateChatbot(ctx, bot); err != nil {
			return err
		}
		doc.ChatbotId = bot.Id
		return knowledgeRepo.CreateDocument(ctx, doc)
	})
	if err != nil {
		s.removeFile(ctx, doc.FilePath)
		zlog.Error("create chatbot failed", zap.Error(err), zap.String("account", accountUuid))
		return nil, xerr.ErrServerError
	}

	zlog.Info("chatbot created",
		zap.String("uuid", bot.Uuid),
		zap.String("account", accountUuid),
		zap.String("knowledge_type", doc.Type))
	return s.toItem(bot, []*entity.KnowledgeDocument{doc}), nil
}

func (s *chatbotServiceImpl) Get(ctx context.Context, accountUuid string, id int64) (*respond.ChatbotItem, error) {
	bot, err := s.owned(ctx, accountUuid, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.knowledgeRepo.ListByChatbot(ctx, bot.Id)
	if err != nil {
		zlog.Error("list knowledge failed", zap.Error(err), zap.Int64("chatbot_id", bot.Id))
		return nil, xerr.ErrServerError
	}
	return s.toItem(bot, docs), nil
}

func (s *chatbotServiceImpl) Update(ctx context.Context, accountUuid string, id int64, req request.UpdateChatbotRequest) (*respond.ChatbotItem, error) {
	bot, err := s.owned(ctx, accountUuid, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.SystemPrompt)
	if prompt == "" {
		prompt = entity.DefaultSystemPrompt
	}
	if err := s.chatbotRepo.UpdateProfile(ctx, bot.Id, name, prompt); err != nil {
		zlog.Error("update chatbot failed", zap.Error(err), zap.Int64("chatbot_id", bot.Id))
		return nil, xerr.ErrServerError
	}
	return s.Get(ctx, accountUuid, id)
}

func (s *chatbotServiceImpl) Delete(ctx context.Context, accountUuid string, id int64) error {
	bot, err := s.owned(ctx, accountUuid, id)
	if err != nil {
		return err
	}
	docs, err := s.knowledgeRepo.ListByChatbot(ctx, bot.Id)
	if err != nil {
		zlog.Error("list knowledge failed", zap.Error(err), zap.Int64("chatbot_id", bot.Id))
		return xerr.ErrServerError
	}
	if err := s.chatbotRepo.DeleteCascade(ctx, bot.Id); err != nil {
		zlog.Error("delete chatbot failed", zap.Error(err), zap.Int64("chatbot_id", bot.Id))
		return xerr.ErrServerError
	}
	for _, d := range docs {
		s.removeFile(ctx, d.FilePath)
	}
	zlog.Info("chatbot deleted", zap.String("uuid", bot.Uuid))
	return nil
}

func (s *chatbotServiceImpl) AddKnowledge(ctx context.Context, accountUuid string, id int64, in request.KnowledgeInput) (*respond.KnowledgeItem, error) {
	bot, err := s.owned(ctx, accountUuid, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.prepareDocument(ctx, in)
	if err != nil {
		return nil, err
	}
	doc.ChatbotId = bot.Id
	if err := s.knowledgeRepo.CreateDocument(ctx, doc); err != nil {
		s.removeFile(ctx, doc.FilePath)
		zlog.Error("create knowledge failed", zap.Error(err), zap.Int64("chatbot_id", bot.Id))
		return nil, xerr.ErrServerError
	}
	item := toKnowledgeItem(doc)
	return &item, nil
}

func (s *chatbotServiceImpl) DeleteKnowledge(ctx context.Context, accountUuid string, id, docId int64) error {
	bot, err := s.owned(ctx, accountUuid, id)
	if err != nil {
		return err
	}
	doc, err := s.knowledgeRepo.GetByID(ctx, docId)
	if err != nil {
		zlog.Error("get knowledge failed", zap.Error(err), zap.Int64("doc_id", docId))
		return xerr.ErrServerError
	}
	if doc == nil || doc.ChatbotId != bot.Id {
		return xerr.NewNotFound("knowledge document not found")
	}
	if err := s.knowledgeRepo.DeleteDocument(ctx, doc.Id); err != nil {
		zlog.Error("delete knowledge failed", zap.Error(err), zap.Int64("doc_id", docId))
		return xerr.ErrServerError
	}
	s.removeFile(ctx, doc.FilePath)
	return nil
}

// owned 校验机器人存在且属于当前账户
func (s *chatbotServiceImpl) owned(ctx context.Context, accountUuid string, id int64) (*entity.Chatbot, error) {
	bot, err := s.chatbotRepo.GetByID(ctx, id)
	if err != nil {
		zlog.Error("get chatbot failed", zap.Error(err), zap.Int64("chatbot_id", id))
		return nil, xerr.ErrServerError
	}
	if bot == nil {
		return nil, xerr.NewNotFound("chatbot not found")
	}
	if bot.AccountUuid != accountUuid {
		return nil, xerr.ErrForbidden
	}
	return bot, nil
}

// prepareDocument 校验输入并得到规范化文本；pdf 会先落盘
func (s *chatbotServiceImpl) prepareDocument(ctx context.Context, in request.KnowledgeInput) (*entity.KnowledgeDocument, error) {
	switch strings.TrimSpace(in.KnowledgeType) {
	case entity.KnowledgeTypeText:
		content := extraction.Normalize(in.Content)
		if content == "" {
			return nil, xerr.NewValidation("content is required for text knowledge")
		}
		return &entity.KnowledgeDocument{Type: entity.KnowledgeTypeText, Content: content}, nil

	case entity.KnowledgeTypePDF:
		if len(in.FileData) == 0 {
			return nil, xerr.NewValidation("pdf_file is required for pdf knowledge")
		}
		if !strings.EqualFold(filepath.Ext(in.FileName), ".pdf") {
			return nil, xerr.NewValidation("pdf_file must be a PDF document")
		}
		size := in.FileSize
		if size <= 0 {
			size = int64(len(in.FileData))
		}
		if size > s.opts.MaxPdfBytes {
			return nil, xerr.NewValidation("pdf_file exceeds the maximum upload size")
		}

		text, err := s.extractor.Extract(in.FileData, in.FileName)
		if err != nil {
			return nil, err
		}
		path, err := s.files.Save(ctx, pdfDir, ".pdf", in.FileData)
		if err != nil {
			zlog.Error("store pdf failed", zap.Error(err), zap.String("filename", in.FileName))
			return nil, xerr.ErrServerError
		}
		return &entity.KnowledgeDocument{Type: entity.KnowledgeTypePDF, FilePath: path, Content: text}, nil

	default:
		return nil, xerr.NewValidation("knowledge_type must be text or pdf")
	}
}

func (s *chatbotServiceImpl) removeFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.files.Delete(ctx, path); err != nil {
		zlog.Warn("remove stored file failed", zap.String("path", path), zap.Error(err))
	}
}

func validateName(name string) error {
	if name == "" {
		return xerr.NewValidation("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return xerr.NewValidation("name must not exceed 255 characters")
	}
	return nil
}

func (s *chatbotServiceImpl) toItem(bot *entity.Chatbot, docs []*entity.KnowledgeDocument) *respond.ChatbotItem {
	item := &respond.ChatbotItem{
		Id:           bot.Id,
		Uuid:         bot.Uuid,
		Name:         bot.Name,
		SystemPrompt: bot.EffectiveSystemPrompt(),
		WidgetURL:    bot.WidgetURL(s.opts.PublicBaseURL),
		EmbedCode:    bot.EmbedCode(s.opts.PublicBaseURL),
		CreatedAt:    formatTime(bot.CreatedAt),
		UpdatedAt:    formatTime(bot.UpdatedAt),
		Knowledge:    make([]respond.KnowledgeItem, 0, len(docs)),
	}
	for _, d := range docs {
		item.Knowledge = append(item.Knowledge, toKnowledgeItem(d))
	}
	return item
}

func toKnowledgeItem(d *entity.KnowledgeDocument) respond.KnowledgeItem {
	return respond.KnowledgeItem{
		Id:        d.Id,
		Type:      d.Type,
		FilePath:  d.FilePath,
		Content:   d.Content,
		CreatedAt: formatTime(d.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
