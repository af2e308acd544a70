package refdata

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

type categoryFile struct {
	Categories []struct {
		Name   string `yaml:"name"`
		Prompt string `yaml:"prompt"`
	} `yaml:"categories"`
}

// ParseCategories reads a YAML document of the form
//
//	categories:
//	  - name: SYSTEM_PROMPT
//	    prompt: |
//	      ...
func ParseCategories(r io.Reader) ([]domain.DocumentCategory, error) {
	var file categoryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse categories", errors.New("empty file"))
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse categories", err)
	}

	seen := make(map[string]struct{}, len(file.Categories))
	out := make([]domain.DocumentCategory, 0, len(file.Categories))
	for i, c := range file.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse categories", fmt.Errorf("entry %d has no name", i+1))
		}
		if _, dup := seen[name]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse categories", fmt.Errorf("duplicate category %q", name))
		}
		seen[name] = struct{}{}
		out = append(out, domain.DocumentCategory{Name: name, Prompt: strings.TrimSpace(c.Prompt)})
	}
	return out, nil
}
