// Package prompts loads the prompt templates sent to collaborators and renders them.
//
// Templates are Markdown files with {key} placeholders. Built-in defaults are embedded
// in the binary; a directory of overrides may shadow any of them by file name.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
)

// Built-in template names.
const (
	Draft                 = "draft"
	Synthesis             = "synthesis"
	ReviewCodeConsistency = "review_code_consistency"
	ReviewSkillCompliance = "review_skill_compliance"
	Validation            = "validation"
	Revision              = "revision"
	Polish                = "polish"
	Vote                  = "vote"
	InitUnderstanding     = "init_understanding"
	InitFlow              = "init_flow"
	StructureGuide        = "structure_guide"
)

//go:embed templates/*.md
var builtin embed.FS

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Render replaces every {key} whose key is present in vars.
// Unknown placeholders and any other braces are left untouched.
func Render(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Library resolves templates by name, preferring the override directory.
type Library struct {
	dir string
}

// NewLibrary creates a library. An empty dir uses only the built-in templates.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Template returns the named template. The ".md" suffix is optional.
func (l *Library) Template(name string) (string, error) {
	file := strings.TrimSuffix(name, ".md") + ".md"

	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, file))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read template %s: %w", name, err)
		}
	}

	data, err := builtin.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrTemplateMissing, name)
	}
	return string(data), nil
}

// Names lists every template available to the library, built-in and overrides.
func (l *Library) Names() []string {
	seen := make(map[string]bool)
	collect := func(entries []fs.DirEntry) {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
				seen[strings.TrimSuffix(e.Name(), ".md")] = true
			}
		}
	}

	if entries, err := builtin.ReadDir("templates"); err == nil {
		collect(entries)
	}
	if l.dir != "" {
		if entries, err := os.ReadDir(l.dir); err == nil {
			collect(entries)
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
