package service

import (
	"regexp"
	"strings"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// TemplateService handles message template rendering
type TemplateService interface {
	Render(template string, contact *models.Contact) string
	ExtractPlaceholders(template string) []string
}

type templateService struct {
	placeholderPattern *regexp.Regexp
}

// NewTemplateService creates a new template service
func NewTemplateService() TemplateService {
	return &templateService{
		placeholderPattern: regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`),
	}
}

// Render replaces {{placeholder}} tokens with the contact's field values.
// Placeholders that match no field are left verbatim so a typo in a
// template is visible in the delivered text rather than silently dropped.
func (s *templateService) Render(template string, contact *models.Contact) string {
	if contact == nil {
		return template
	}

	fields := contact.Fields()

	return s.placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		if value, ok := fields[name]; ok {
			return value
		}
		return match
	})
}

// ExtractPlaceholders returns all placeholders found in template
func (s *templateService) ExtractPlaceholders(template string) []string {
	matches := s.placeholderPattern.FindAllStringSubmatch(template, -1)
	placeholders := make([]string, 0, len(matches))

	for _, match := range matches {
		if len(match) > 1 {
			placeholders = append(placeholders, match[1])
		}
	}

	return placeholders
}
