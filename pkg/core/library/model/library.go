package model

import "gorm.io/gorm"

// Dynasty 朝代，按 start_year 排成时间轴
type Dynasty struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"type:varchar(50);not null" json:"name"`
	StartYear int    `gorm:"index" json:"start_year"`
}

func (Dynasty) TableName() string { return "dynasty" }

type Poetry struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DynastyID int64  `gorm:"index" json:"dynasty_id"`
	Content   string `gorm:"type:text" json:"content"`
	Author    string `gorm:"type:varchar(100)" json:"author"`
}

func (Poetry) TableName() string { return "poetry" }

// PoetryWithDynasty 古诗联表查询结果
type PoetryWithDynasty struct {
	Poetry      `gorm:"embedded"`
	DynastyName string `json:"dynasty_name"`
}

// Zitie 字帖
type Zitie struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
	Author    string `gorm:"type:varchar(100)" json:"author"`
	Content   string `gorm:"type:text" json:"content"`
	DynastyID int64  `gorm:"index" json:"dynasty_id"`
}

func (Zitie) TableName() string { return "zitie" }

func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		db = db.Set("gorm:table_options", "DEFAULT CHARSET=utf8mb4")
	}
	return db.AutoMigrate(&Dynasty{}, &Poetry{}, &Zitie{})
}
