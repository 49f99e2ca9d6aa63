// Package prompts loads the conversation prompt templates and renders them with
// the arguments a client supplies.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var embeddedTemplates embed.FS

// Argument is a named prompt argument
type Argument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Template is a prompt loaded from YAML
type Template struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Arguments   []Argument `yaml:"arguments"`
	Body        string     `yaml:"template"`

	tmpl *template.Template
}

// Manager holds the parsed prompt templates
type Manager struct {
	templates map[string]*Template
	logger    *zap.Logger
}

var groupConsiderations = map[string][]string{
	"business":    {"Professional catering options", "Meeting room vouchers", "Flexible rebooking"},
	"leisure":     {"Group activities booking", "Hotel partnerships", "Tour connections"},
	"sports":      {"Equipment handling", "Team seating arrangements", "Meal coordination"},
	"educational": {"Student discounts", "Chaperone seating", "Educational materials"},
}

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"split": splitList,
	"default": func(fallback, value string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	},
	"groupConsiderations": func(purpose string) []string {
		if c, ok := groupConsiderations[strings.ToLower(strings.TrimSpace(purpose))]; ok {
			return c
		}
		return []string{"Customized group services"}
	},
}

// splitList splits a comma separated list and drops empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewManager loads the embedded templates
func NewManager(logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		templates: make(map[string]*Template),
		logger:    logger.Named("prompts"),
	}
	if err := m.loadEmbeddedTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load embedded templates: %w", err)
	}
	m.logger.Debug("Prompt templates loaded", zap.Int("count", len(m.templates)))
	return m, nil
}

func (m *Manager) loadEmbeddedTemplates() error {
	return fs.WalkDir(embeddedTemplates, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}

		data, err := embeddedTemplates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded template %s: %w", path, err)
		}
		t, err := parseTemplate(data)
		if err != nil {
			return fmt.Errorf("failed to parse embedded template %s: %w", path, err)
		}
		if _, exists := m.templates[t.ID]; exists {
			return fmt.Errorf("duplicate template id %s in %s", t.ID, path)
		}
		m.templates[t.ID] = t
		return nil
	})
}

func parseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.ID == "" {
		return nil, fmt.Errorf("template ID is required")
	}
	if t.Body == "" {
		return nil, fmt.Errorf("template content is required")
	}

	tmpl, err := template.New(t.ID).Funcs(funcs).Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return nil, err
	}
	t.tmpl = tmpl
	return &t, nil
}

// Get returns a template by id
func (m *Manager) Get(id string) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", id)
	}
	return t, nil
}

// List returns every template sorted by id
func (m *Manager) List() []*Template {
	out := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Render fills a template with args. Missing required arguments are an error.
func (m *Manager) Render(id string, args map[string]string) (string, error) {
	t, err := m.Get(id)
	if err != nil {
		return "", err
	}

	data := make(map[string]string, len(args))
	for k, v := range args {
		data[k] = v
	}
	for _, arg := range t.Arguments {
		if arg.Required && strings.TrimSpace(data[arg.Name]) == "" {
			return "", fmt.Errorf("missing required argument %q for prompt %s", arg.Name, id)
		}
		if _, ok := data[arg.Name]; !ok {
			data[arg.Name] = ""
		}
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		m.logger.Error("Template rendering failed", zap.String("template_id", id), zap.Error(err))
		return "", fmt.Errorf("failed to render prompt %s: %w", id, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
