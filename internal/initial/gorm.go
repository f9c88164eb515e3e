package initial

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ChatNest/internal/config"
	accountEntity "ChatNest/internal/modules/account/domain/entity"
	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/widget/domain/conversation"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

// InitGorm 连接数据库并自动迁移，失败直接退出
func InitGorm(conf config.DatabaseConfig) *gorm.DB {
	db, err := NewGormDB(conf)
	if err != nil {
		zlog.Fatal("open database failed", zap.Error(err))
	}
	// 自动迁移，如果没有建表，会自动创建对应的表
	if err := AutoMigrate(db); err != nil {
		zlog.Fatal("auto migrate failed", zap.Error(err))
	}
	GormDB = db
	return db
}

// NewGormDB 按 driver 打开 mysql 或 sqlite
func NewGormDB(conf config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(conf.Driver)) {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(conf.SqlitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// sqlite 单写者，串行化连接避免 database is locked
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&accountEntity.Account{},
		&chatbotEntity.Chatbot{},
		&chatbotEntity.KnowledgeDocument{},
		&conversation.ChatSession{},
		&conversation.ChatMessage{},
	)
}
