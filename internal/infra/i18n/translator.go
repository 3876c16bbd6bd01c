package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// BaseLanguage holds every key; other catalogs may be partial.
const BaseLanguage = "en"

//go:embed locales
var LocalesFS embed.FS

// Translator resolves message keys for one language, falling back to the base catalog.
// Keys missing from both render as the key itself.
type Translator struct {
	lang     string
	messages map[string]string
	fallback map[string]string
}

func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	base, err := loadCatalog(fsys, BaseLanguage)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: BaseLanguage, messages: base}
	if lang == "" || lang == BaseLanguage {
		return t, nil
	}
	msgs, err := loadCatalog(fsys, lang)
	if err != nil {
		return nil, err
	}
	return &Translator{lang: lang, messages: msgs, fallback: base}, nil
}

func loadCatalog(fsys fs.FS, lang string) (map[string]string, error) {
	filePath := path.Join("locales", lang+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", filePath, err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (map[string]string, error) {
	var msgs map[string]string
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return msgs, nil
}

func (t *Translator) lookup(key string) (string, bool) {
	if f, ok := t.messages[key]; ok {
		return f, true
	}
	f, ok := t.fallback[key]
	return f, ok
}

// T formats the message for key with args.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.lookup(key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Missing lists the keys that resolve in neither catalog.
func (t *Translator) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := t.lookup(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

func (t *Translator) Lang() string { return t.lang }
