// Package i18n holds the user-facing texts of the chat surfaces.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLanguage = "en"

type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys. Any other
// language must define every key of the default one.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	t, err := loadLocale(fsys, langCode)
	if err != nil || langCode == DefaultLanguage {
		return t, err
	}
	base, err := loadLocale(fsys, DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if missing := t.missing(base); len(missing) > 0 {
		return nil, fmt.Errorf("locale %s is missing keys: %s", langCode, strings.Join(missing, ", "))
	}
	return t, nil
}

func loadLocale(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

// Default returns the embedded English texts.
func Default() *Translator {
	t, err := NewTranslator(LocalesFS, DefaultLanguage)
	if err != nil {
		panic(err)
	}
	return t
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T formats the text stored under key; unknown keys come back verbatim.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// missing lists the keys of base that t does not define, sorted.
func (t *Translator) missing(base *Translator) []string {
	var keys []string
	for k := range base.translations {
		if _, ok := t.translations[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
