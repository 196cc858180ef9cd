package domain

import (
	"fmt"
	"strings"
)

// Language is a supported response language.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageSpanish  Language = "es"
	LanguageFrench   Language = "fr"
	LanguageGerman   Language = "de"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// DefaultLanguage applies when no preference has been stored.
const DefaultLanguage = LanguageEnglish

// LanguageConfig names a language for display.
type LanguageConfig struct {
	Code       Language
	Name       string
	NativeName string
}

var languageConfigs = map[Language]LanguageConfig{
	LanguageEnglish:  {Code: LanguageEnglish, Name: "English", NativeName: "English"},
	LanguageSpanish:  {Code: LanguageSpanish, Name: "Spanish", NativeName: "Español"},
	LanguageFrench:   {Code: LanguageFrench, Name: "French", NativeName: "Français"},
	LanguageGerman:   {Code: LanguageGerman, Name: "German", NativeName: "Deutsch"},
	LanguageChinese:  {Code: LanguageChinese, Name: "Chinese (Simplified)", NativeName: "简体中文"},
	LanguageJapanese: {Code: LanguageJapanese, Name: "Japanese", NativeName: "日本語"},
}

// Languages returns all supported languages.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman, LanguageChinese, LanguageJapanese}
}

func (l Language) Valid() bool {
	_, ok := languageConfigs[l]
	return ok
}

// Config returns display names, falling back to the default language.
func (l Language) Config() LanguageConfig {
	if c, ok := languageConfigs[l]; ok {
		return c
	}
	return languageConfigs[DefaultLanguage]
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return l, nil
}
