package routes

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

const languageLocal = "language"

var supportedLanguages = []transit.Language{transit.LanguageChinese, transit.LanguageEnglish}

var languageMatcher = language.NewMatcher([]language.Tag{language.TraditionalChinese, language.English})

// NegotiateLanguage picks the response language from ?lang= then Accept-Language, else fallback
func NegotiateLanguage(fallback transit.Language) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(languageLocal, negotiate(c.Query("lang"), c.Get(fiber.HeaderAcceptLanguage), fallback))
		return c.Next()
	}
}

func negotiate(query string, acceptLanguage string, fallback transit.Language) transit.Language {
	switch query {
	case string(transit.LanguageEnglish):
		return transit.LanguageEnglish
	case string(transit.LanguageChinese):
		return transit.LanguageChinese
	}

	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supportedLanguages[index]
}

func requestLanguage(c *fiber.Ctx) transit.Language {
	if lang, ok := c.Locals(languageLocal).(transit.Language); ok {
		return lang
	}
	return transit.LanguageChinese
}
