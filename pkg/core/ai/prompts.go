package ai

import "fmt"

// 书体标签，识别结果只能是其中之一
const (
	StyleRegular  = "楷书"
	StyleRunning  = "行书"
	StyleCursive  = "草书"
	StyleClerical = "隶书"
	StyleThinGold = "瘦金体"
	StyleSeal     = "篆书"

	DefaultStyle = StyleRegular
)

var Styles = []string{StyleRegular, StyleRunning, StyleCursive, StyleClerical, StyleThinGold, StyleSeal}

const (
	FallbackTheme = "无法解读图片主题"
	FallbackPoem  = "墨韵凝香纸上行，笔锋流转意含情。\n千秋文脉凭君续，一砚清池照古今。"

	fallbackScore = 8.0
)

const recognizePrompt = "请精准识别这张书法作品的字体类型，仅返回字体名称（如楷书、行书、草书、隶书、瘦金体、篆书），不要任何多余内容。"

const interpretPrompt = `请严格按照以下要求完成：
1. 第一行：简洁描述这张图片的主题（不超过50字，通俗易懂）；
2. 第二行开始：根据图片主题创作一首贴合书法艺术的五言律诗，仅返回古诗内容，分行显示，无标题、无解释。`

// 各调用的采样参数
var (
	recognizeParams = callParams{temperature: 0.1, maxTokens: 20}
	scoreParams     = callParams{temperature: 0.3, maxTokens: 500}
	interpretParams = callParams{temperature: 0.8, maxTokens: 300}
)

type callParams struct {
	temperature float64
	maxTokens   int
}

func scorePrompt(style string) string {
	return fmt.Sprintf(`你是专业的%[1]s书法评委，请完成以下任务：
1. 首先明确输出字体识别结果：%[1]s；
2. 对上传的%[1]s作品打0-10分的分数（保留1位小数）；
3. 从「笔画、结构、章法」3个维度各给出1条针对%[1]s的具体改进建议；
4. 语言简洁专业，不要多余内容。`, style)
}

func scoreFallback(style string, err error) string {
	return fmt.Sprintf("AI评分失败：%[2]v\n\n字体识别结果：%[1]s\n默认评分：8.0分\n改进建议：\n1. 练习%[1]s基本笔画\n2. 参考名家碑帖调整结构\n3. 注意整体章法布局", style, err)
}

func imagePrompt(poem, style string) string {
	return fmt.Sprintf(`将以下古诗以%[1]s书法风格书写在米黄色宣纸上：
%[2]s
要求：
1. %[1]s风格特征明显（楷书工整方正、行书流畅自然、草书豪放洒脱、瘦金体纤细挺拔）；
2. 字体大小适中，笔画清晰可辨，适合书法临摹；
3. 无多余装饰，背景仅为纯色宣纸，无边框、无水印。`, style, poem)
}

// IsStyle 是否为已知书体
func IsStyle(s string) bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}
