// Package templates provides embedded config file templates for ersc config init.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
)

//go:embed *.toml
var templatesFS embed.FS

// Template represents a config file template with metadata.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

// Data fills the placeholders of a template.
type Data struct {
	InstallPath string
}

// Available templates with their descriptions.
var templateDescriptions = map[string]string{
	"minimal": "Install path only",
	"full":    "Every option, documented",
	"mirror":  "Releases from a mirror of the GitHub API",
}

// List returns all available template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}

	sort.Strings(names)
	return names
}

// Get returns a template by name, unrendered.
func Get(name string) (*Template, error) {
	content, err := templatesFS.ReadFile(name + ".toml")
	if err != nil {
		if pathErr, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("template '%s' not found: %w", name, pathErr)
		}
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}

	return &Template{
		Name:        name,
		Description: GetDescription(name),
		Content:     content,
	}, nil
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}

// Render returns the named template with data filled in.
func Render(name string, data Data) ([]byte, error) {
	tmpl, err := Get(name)
	if err != nil {
		return nil, err
	}

	t, err := template.New(name).Funcs(template.FuncMap{"tomlString": tomlString}).Parse(string(tmpl.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template '%s': %w", name, err)
	}
	return buf.Bytes(), nil
}

// tomlString quotes s as a TOML string. Literal strings keep Windows
// backslashes readable; anything a literal string cannot hold falls back
// to a basic string with TOML escapes.
func tomlString(s string) string {
	literal := !strings.ContainsRune(s, '\'')
	for _, r := range s {
		if isTOMLControl(r) && r != '\t' {
			literal = false
			break
		}
	}
	if literal {
		return "'" + s + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if isTOMLControl(r) {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func isTOMLControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
