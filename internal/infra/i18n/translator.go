package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"socials-billing/internal/usecase"
)

//go:embed locales
var LocalesFS embed.FS

var _ usecase.Messages = (*Translator)(nil)

// Translator serves user-facing strings from a YAML catalogue. Nested YAML
// maps are addressed with dotted keys ("status.success").
type Translator struct {
	lang         string
	translations map[string]string
	fallback     map[string]string
}

// NewTranslator loads locales/<lang>.yaml from fsys. For any lang other than
// "en", missing keys fall back to locales/en.yaml.
func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	primary, err := load(fsys, lang)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: lang, translations: primary}
	if lang != "en" {
		if fb, err := load(fsys, "en"); err == nil {
			t.fallback = fb
		}
	}
	return t, nil
}

func load(fsys fs.FS, lang string) (map[string]string, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", lang))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newCatalogueFromBytes(data)
}

func newCatalogueFromBytes(data []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case map[string]any:
			flatten(key, x, out)
		case string:
			out[key] = x
		case nil:
		default:
			out[key] = fmt.Sprint(x)
		}
	}
}

func (t *Translator) Lang() string { return t.lang }

// T returns the formatted string for key, or key itself when unknown.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		format, ok = t.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
