// Package library holds the reference material administrators curate for
// initiators: legal document templates used when packaging a submission, and
// a knowledge base of completed projects.
package library

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed library.yaml
var libraryYAML []byte

// Template is a legal document skeleton.
type Template struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Category     string `yaml:"category" json:"category"`
	Content      string `yaml:"content" json:"content"`
	LastModified string `yaml:"last_modified" json:"lastModified"`
}

// Entry is a knowledge base record about a finished initiative.
type Entry struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Region   string   `yaml:"region" json:"region"`
	Budget   float64  `yaml:"budget" json:"budget"`
	Outcomes string   `yaml:"outcomes" json:"outcomes"`
	Tags     []string `yaml:"tags" json:"tags"`
}

// Library is the parsed reference set.
type Library struct {
	Templates     []Template `yaml:"templates"`
	KnowledgeBase []Entry    `yaml:"knowledge_base"`
}

// Default parses the embedded library.
func Default() (Library, error) {
	return Parse(libraryYAML)
}

// Parse decodes a YAML document with templates and knowledge_base lists.
func Parse(data []byte) (Library, error) {
	var l Library
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Library{}, fmt.Errorf("parse library: %w", err)
	}
	seen := make(map[string]bool)
	for i, t := range l.Templates {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Name) == "" {
			return Library{}, fmt.Errorf("template %d: id and name are required", i)
		}
		if seen[t.ID] {
			return Library{}, fmt.Errorf("template %s: duplicate id", t.ID)
		}
		seen[t.ID] = true
	}
	for i, e := range l.KnowledgeBase {
		if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Title) == "" {
			return Library{}, fmt.Errorf("knowledge base entry %d: id and title are required", i)
		}
		if seen[e.ID] {
			return Library{}, fmt.Errorf("knowledge base entry %s: duplicate id", e.ID)
		}
		seen[e.ID] = true
		if e.Budget < 0 {
			return Library{}, fmt.Errorf("knowledge base entry %s: negative budget", e.ID)
		}
		if e.Tags == nil {
			l.KnowledgeBase[i].Tags = []string{}
		}
	}
	if l.Templates == nil {
		l.Templates = []Template{}
	}
	if l.KnowledgeBase == nil {
		l.KnowledgeBase = []Entry{}
	}
	return l, nil
}

// TemplatesIn returns the templates of category, case-insensitively. An empty
// category returns all of them.
func (l Library) TemplatesIn(category string) []Template {
	category = strings.TrimSpace(category)
	out := []Template{}
	for _, t := range l.Templates {
		if category == "" || strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

// Tagged returns knowledge base entries carrying tag.
func (l Library) Tagged(tag string) []Entry {
	tag = strings.TrimSpace(tag)
	out := []Entry{}
	for _, e := range l.KnowledgeBase {
		if tag == "" {
			out = append(out, e)
			continue
		}
		for _, t := range e.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
