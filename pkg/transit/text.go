package transit

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

func ParseLanguage(s string) Language {
	if s == string(LanguageEnglish) {
		return LanguageEnglish
	}
	return LanguageChinese
}

type BilingualText struct {
	Zh string `json:"zh" groups:"basic"`
	En string `json:"en" groups:"basic"`
}

func (b BilingualText) Get(language Language) string {
	if language == LanguageEnglish {
		return b.En
	}
	return b.Zh
}

func (b BilingualText) IsEmpty() bool {
	return b.Zh == "" && b.En == ""
}

type Coordinates struct {
	Lat float64 `json:"lat" groups:"basic"`
	Lng float64 `json:"lng" groups:"basic"`
}

// Distance in kilometres
func (c Coordinates) Distance(other Coordinates) float64 {
	return util.HaversineDistance(c.Lat, c.Lng, other.Lat, other.Lng)
}
