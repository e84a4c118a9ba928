package service

import (
	"reflect"
	"testing"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

func TestTemplateService_Render(t *testing.T) {
	svc := NewTemplateService()

	contact := &models.Contact{
		Phone:            "+254700000001",
		FirstName:        "Alice",
		LastName:         "Wanjiku",
		Location:         "Nairobi",
		PreferredProduct: "solar kit",
		Attributes:       map[string]string{"plan": "gold"},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "Hi {{first_name}}!",
			want:     "Hi Alice!",
		},
		{
			name:     "multiple placeholders",
			template: "{{first_name}} {{last_name}} from {{location}}",
			want:     "Alice Wanjiku from Nairobi",
		},
		{
			name:     "custom attribute",
			template: "Your {{plan}} plan is active",
			want:     "Your gold plan is active",
		},
		{
			name:     "unknown placeholder left verbatim",
			template: "Hi {{nickname}}, enjoy your {{preferred_product}}",
			want:     "Hi {{nickname}}, enjoy your solar kit",
		},
		{
			name:     "repeated placeholder",
			template: "{{first_name}}, yes you, {{first_name}}",
			want:     "Alice, yes you, Alice",
		},
		{
			name:     "no placeholders",
			template: "Flash sale ends tonight",
			want:     "Flash sale ends tonight",
		},
		{
			name:     "malformed braces untouched",
			template: "Hi {first_name} and {{first name}}",
			want:     "Hi {first_name} and {{first name}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Render(tt.template, contact); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateService_RenderNilContact(t *testing.T) {
	svc := NewTemplateService()

	template := "Hi {{first_name}}!"
	if got := svc.Render(template, nil); got != template {
		t.Errorf("Render() with nil contact = %q, want template unchanged", got)
	}
}

func TestTemplateService_BuiltInFieldWinsOverAttribute(t *testing.T) {
	svc := NewTemplateService()

	contact := &models.Contact{
		FirstName:  "Alice",
		Attributes: map[string]string{"first_name": "Imposter"},
	}

	if got := svc.Render("{{first_name}}", contact); got != "Alice" {
		t.Errorf("Render() = %q, want built-in field value", got)
	}
}

func TestTemplateService_ExtractPlaceholders(t *testing.T) {
	svc := NewTemplateService()

	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "mixed placeholders",
			template: "Hi {{first_name}}, your {{plan}} expires",
			want:     []string{"first_name", "plan"},
		},
		{
			name:     "none",
			template: "plain text",
			want:     []string{},
		},
		{
			name:     "duplicates kept in order",
			template: "{{a}} {{b}} {{a}}",
			want:     []string{"a", "b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ExtractPlaceholders(tt.template)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractPlaceholders() = %v, want %v", got, tt.want)
			}
		})
	}
}
