package visual

import "strings"

const (
	// CanvasWidth / CanvasHeight 固定画布尺寸，与图表类型和数据量无关。
	CanvasWidth  = 600
	CanvasHeight = 400

	colorBackground = "#ffffff"
	colorText       = "#333333"
	colorTextMuted  = "#666666"
	colorGrid       = "#e5e5e5"
	colorGold       = "#d4af37"
	colorCrimson    = "#8b0000"

	radarFillOpacity = 0.2
	scaleMax         = 100
	scaleStep        = 20
)

// 横向柱状图按位置循环使用三档透明度。
var barOpacityTiers = [3]float32{0.9, 0.7, 0.5}

type wedgeStyle struct {
	color   string
	opacity float32
}

// 八卦配色：坎(北)、离(南)两个"水"位用深红，其余六位用金色，透明度按卦位递减。
var trigramStyles = map[string]wedgeStyle{
	"qian": {colorGold, 0.9},
	"kun":  {colorGold, 0.8},
	"zhen": {colorGold, 0.7},
	"xun":  {colorGold, 0.6},
	"kan":  {colorCrimson, 0.7},
	"li":   {colorCrimson, 0.6},
	"gen":  {colorGold, 0.5},
	"dui":  {colorGold, 0.4},
}

// 本地化标签按前缀识别卦位，覆盖简繁中文、日文与韩文写法。
var trigramAliases = map[string]string{
	"乾": "qian", "坤": "kun", "震": "zhen", "巽": "xun",
	"坎": "kan", "离": "li", "離": "li", "艮": "gen", "兑": "dui", "兌": "dui",
	"건": "qian", "곤": "kun", "진": "zhen", "손": "xun",
	"감": "kan", "리": "li", "간": "gen", "태": "dui",
}

// positional opacity for labels that are not a known trigram
var wedgeOpacityByIndex = [8]float32{0.9, 0.8, 0.7, 0.6, 0.7, 0.6, 0.5, 0.4}

// styleForDirection resolves "Kan (North)", "kan", "坎位" etc. to the trigram's wedge style.
func styleForDirection(label string, idx int) wedgeStyle {
	key := strings.TrimSpace(label)
	if i := strings.IndexAny(key, " (（"); i > 0 {
		key = key[:i]
	}
	key = strings.ToLower(key)
	if st, ok := trigramStyles[key]; ok {
		return st
	}
	for zh, name := range trigramAliases {
		if strings.HasPrefix(key, zh) {
			return trigramStyles[name]
		}
	}
	return wedgeStyle{colorGold, wedgeOpacityByIndex[idx%len(wedgeOpacityByIndex)]}
}

func isWaterDirection(label string) bool {
	return styleForDirection(label, 0).color == colorCrimson
}
