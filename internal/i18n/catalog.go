// Package i18n resolves localized validation messages.
package i18n

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Keys used outside of answer validation
const (
	MsgCannotChangeStep = "cannotChangeStep"
	MsgCompleted        = "completed"
)

//go:embed messages.yaml
var defaultMessages []byte

// Provider returns the message for key in the language closest to lang
type Provider interface {
	Message(lang, key string, params map[string]any) string
}

// Catalog is a Provider backed by a YAML document of language -> key -> template.
// Templates reference params as {name}.
type Catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages []map[string]string
}

// Default loads the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultMessages)
}

// Parse builds a catalog. The first language in the document is the fallback.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("messages must be a mapping of languages")
	}

	root := doc.Content[0]
	c := &Catalog{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		tag, err := language.Parse(root.Content[i].Value)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", root.Content[i].Value, err)
		}
		var msgs map[string]string
		if err := root.Content[i+1].Decode(&msgs); err != nil {
			return nil, fmt.Errorf("invalid messages for %s: %w", tag, err)
		}
		c.tags = append(c.tags, tag)
		c.messages = append(c.messages, msgs)
	}
	if len(c.tags) == 0 {
		return nil, fmt.Errorf("messages define no language")
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Languages lists the catalog languages, fallback first
func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

func (c *Catalog) Message(lang, key string, params map[string]any) string {
	_, idx := language.MatchStrings(c.matcher, lang)
	tmpl, ok := c.messages[idx][key]
	if !ok {
		if tmpl, ok = c.messages[0][key]; !ok {
			return key
		}
	}
	return render(tmpl, params)
}

func render(tmpl string, params map[string]any) string {
	if len(params) == 0 {
		return tmpl
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, k := range names {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(params[k]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
