// Package content holds the text of the portfolio page. The default content
// is embedded; a YAML file with the same shape can replace it.
package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Portfolio struct {
	Name        string     `yaml:"name"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Tagline     string     `yaml:"tagline"`
	Location    string     `yaml:"location"`
	Resume      string     `yaml:"resume"`
	Phrases     []string   `yaml:"phrases"`
	Sections    []string   `yaml:"sections"`
	About       About      `yaml:"about"`
	Experience  Experience `yaml:"experience"`
	Skills      []Skill    `yaml:"skills"`
	Projects    Projects   `yaml:"projects"`
	Contact     Contact    `yaml:"contact"`
}

type About struct {
	Paragraphs []string `yaml:"paragraphs"`
	Badges     []string `yaml:"badges"`
}

type Experience struct {
	Intro string `yaml:"intro"`
	Jobs  []Job  `yaml:"jobs"`
}

type Job struct {
	Period  string   `yaml:"period"`
	Title   string   `yaml:"title"`
	Company string   `yaml:"company"`
	Bullets []string `yaml:"bullets"`
}

type Skill struct {
	Title string   `yaml:"title"`
	Icon  string   `yaml:"icon"`
	Items []string `yaml:"items"`
}

type Projects struct {
	Intro string    `yaml:"intro"`
	Items []Project `yaml:"items"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image"`
	Tags        []string `yaml:"tags"`
	GitHub      string   `yaml:"github"`
	Demo        string   `yaml:"demo"`
}

type Contact struct {
	Intro    string `yaml:"intro"`
	Email    string `yaml:"email"`
	GitHub   string `yaml:"github"`
	LinkedIn string `yaml:"linkedin"`
}

// Default returns the embedded portfolio.
func Default() (*Portfolio, error) {
	return Parse(defaultContent)
}

// Load reads path, or the embedded content when path is empty.
func Load(path string) (*Portfolio, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks what the page cannot render without.
func (p *Portfolio) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("content: name is required")
	}
	if len(p.Phrases) == 0 {
		return fmt.Errorf("content: at least one phrase is required")
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("content: at least one section is required")
	}
	seen := map[string]bool{}
	for _, s := range p.Sections {
		if s == "" || seen[s] {
			return fmt.Errorf("content: section ids must be unique and non-empty, got %q", s)
		}
		seen[s] = true
	}
	return nil
}

// NavLabel capitalises a section id for the navigation bar.
func NavLabel(id string) string {
	if id == "" {
		return ""
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
