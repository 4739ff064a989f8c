package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"qingmo/pkg/core/library/model"
)

// 示例数据，按 start_year 升序
var seedDynasties = []model.Dynasty{
	{Name: "先秦", StartYear: -2070},
	{Name: "秦", StartYear: -221},
	{Name: "汉", StartYear: -206},
	{Name: "魏晋", StartYear: 220},
	{Name: "南北朝", StartYear: 420},
	{Name: "隋", StartYear: 581},
	{Name: "唐", StartYear: 618},
	{Name: "五代", StartYear: 907},
	{Name: "宋", StartYear: 960},
	{Name: "元", StartYear: 1271},
	{Name: "明", StartYear: 1368},
	{Name: "清", StartYear: 1644},
}

type seedPoem struct {
	dynasty, author, content string
}

var seedPoetry = []seedPoem{
	{"唐", "李白", "床前明月光，疑是地上霜。\n举头望明月，低头思故乡。"},
	{"唐", "王之涣", "白日依山尽，黄河入海流。\n欲穷千里目，更上一层楼。"},
	{"唐", "孟浩然", "春眠不觉晓，处处闻啼鸟。\n夜来风雨声，花落知多少。"},
	{"宋", "王安石", "爆竹声中一岁除，春风送暖入屠苏。\n千门万户曈曈日，总把新桃换旧符。"},
	{"宋", "苏轼", "横看成岭侧成峰，远近高低各不同。\n不识庐山真面目，只缘身在此山中。"},
	{"魏晋", "陶渊明", "结庐在人境，而无车马喧。\n问君何能尔，心远地自偏。"},
}

type seedCopybook struct {
	dynasty, title, author, content string
}

var seedZitie = []seedCopybook{
	{"魏晋", "兰亭集序", "王羲之", "永和九年，岁在癸丑，暮春之初，会于会稽山阴之兰亭，修禊事也。"},
	{"唐", "多宝塔碑", "颜真卿", "大唐西京千福寺多宝佛塔感应碑文。"},
	{"唐", "九成宫醴泉铭", "欧阳询", "维贞观六年孟夏之月，皇帝避暑乎九成之宫。"},
	{"唐", "自叙帖", "怀素", "怀素家长沙，幼而事佛，经禅之暇，颇好笔翰。"},
	{"唐", "玄秘塔碑", "柳公权", "唐故左街僧录内供奉三教谈论引驾大德安国寺上座。"},
	{"宋", "秾芳诗帖", "赵佶", "秾芳依翠萼，焕烂一庭中。"},
	{"宋", "元日楷书帖", "王安石", "爆竹声中一岁除，春风送暖入屠苏。千门万户曈曈日，总把新桃换旧符。"},
	{"元", "胆巴碑", "赵孟頫", "皇帝敕翰林学士承旨资德大夫臣赵孟頫奉敕撰并书。"},
}

// Seed 空库时写入示例朝代、古诗与字帖；已有朝代数据时直接返回
func Seed(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Dynasty{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count dynasties: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dynasties := make([]model.Dynasty, len(seedDynasties))
		copy(dynasties, seedDynasties)
		if err := tx.Create(&dynasties).Error; err != nil {
			return fmt.Errorf("seed dynasties: %w", err)
		}

		ids := make(map[string]int64, len(dynasties))
		for _, d := range dynasties {
			ids[d.Name] = d.ID
		}

		poems := make([]model.Poetry, 0, len(seedPoetry))
		for _, p := range seedPoetry {
			poems = append(poems, model.Poetry{DynastyID: ids[p.dynasty], Author: p.author, Content: p.content})
		}
		if err := tx.Create(&poems).Error; err != nil {
			return fmt.Errorf("seed poetry: %w", err)
		}

		books := make([]model.Zitie, 0, len(seedZitie))
		for _, z := range seedZitie {
			books = append(books, model.Zitie{DynastyID: ids[z.dynasty], Title: z.title, Author: z.author, Content: z.content})
		}
		if err := tx.Create(&books).Error; err != nil {
			return fmt.Errorf("seed zitie: %w", err)
		}
		return nil
	})
}
