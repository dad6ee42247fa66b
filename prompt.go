package jsaudit

import (
	"fmt"
	"strings"
)

// Placeholder names bound by the Analyzer.
const (
	PlaceholderCode    = "code"    // Script source or chunk text
	PlaceholderOrigin  = "origin"  // SourceDocument.Origin
	PlaceholderIndex   = "index"   // 1-based chunk index
	PlaceholderTotal   = "total"   // Chunk count
	PlaceholderReports = "reports" // Joined partial reports
)

// PromptTemplate is a prompt with {name} placeholders. "{{" and "}}" render
// as literal braces.
type PromptTemplate string

// Render substitutes bindings into the template. Bound values are inserted
// verbatim and are not scanned for placeholders.
func (t PromptTemplate) Render(bindings map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(t))
	err := t.scan(func(literal string) {
		sb.WriteString(literal)
	}, func(name string) error {
		v, ok := bindings[name]
		if !ok {
			return &MissingPlaceholderError{Name: name}
		}
		sb.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Placeholders returns the distinct placeholder names in order of first use.
func (t PromptTemplate) Placeholders() ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	err := t.scan(func(string) {}, func(name string) error {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return nil
	})
	return names, err
}

// scan walks the template, calling literal for plain text and placeholder
// for each {name}.
func (t PromptTemplate) scan(literal func(string), placeholder func(string) error) error {
	s := string(t)
	for len(s) > 0 {
		i := strings.IndexAny(s, "{}")
		if i < 0 {
			literal(s)
			return nil
		}
		literal(s[:i])
		s = s[i:]

		if strings.HasPrefix(s, "{{") || strings.HasPrefix(s, "}}") {
			literal(s[:1])
			s = s[2:]
			continue
		}
		if s[0] == '}' {
			return fmt.Errorf("prompt template: unmatched '}'")
		}

		end := strings.IndexByte(s, '}')
		if end < 0 {
			return fmt.Errorf("prompt template: unclosed '{'")
		}
		name := s[1:end]
		if !validPlaceholder(name) {
			return fmt.Errorf("prompt template: invalid placeholder %q", name)
		}
		if err := placeholder(name); err != nil {
			return err
		}
		s = s[end+1:]
	}
	return nil
}

func validPlaceholder(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
