package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Password  string    `gorm:"type:varchar(255);not null"` // bcrypt 哈希；旧数据可能是明文
	Version   int       `gorm:"default:1;not null"`         // 乐观锁
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 沿用旧库表名
func (User) TableName() string {
	return "user"
}

func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		db = db.Set("gorm:table_options", "COMMENT='用户表'")
	}
	return db.AutoMigrate(&User{})
}
