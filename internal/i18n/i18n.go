package i18n

import (
	"embed"
	"encoding/json"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

func NewLocalizer(defaultLang string, log *logrus.Logger) *i18n.Localizer {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range []string{"locales/en.json", "locales/id.json"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Warnf("Could not load %s: %v", file, err)
		}
	}

	langTag := language.English
	if defaultLang == "id" {
		langTag = language.Indonesian
	}

	return i18n.NewLocalizer(bundle, langTag.String())
}
