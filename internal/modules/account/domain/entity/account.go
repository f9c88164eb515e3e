package entity

import "time"

// Account 控制台账户（聊天机器人的所有者）
type Account struct {
	Id           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid         string    `gorm:"column:uuid;type:char(36);uniqueIndex;not null"`
	Username     string    `gorm:"column:username;type:varchar(64);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(100);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Account) TableName() string {
	return "accounts"
}
