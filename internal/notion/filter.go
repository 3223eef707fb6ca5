package notion

import "time"

// Filter is a database query filter. Either a single property condition or a
// compound And.
type Filter struct {
	Property string         `json:"property,omitempty"`
	Email    *TextCondition `json:"email,omitempty"`
	RichText *TextCondition `json:"rich_text,omitempty"`
	Date     *DateCondition `json:"date,omitempty"`
	And      []Filter       `json:"and,omitempty"`
}

// TextCondition matches text-like properties.
type TextCondition struct {
	Equals string `json:"equals"`
}

// DateCondition matches date properties.
type DateCondition struct {
	After string `json:"after,omitempty"`
}

// EmailEquals matches an email property exactly.
func EmailEquals(property, value string) Filter {
	return Filter{Property: property, Email: &TextCondition{Equals: value}}
}

// RichTextEquals matches a rich text property exactly.
func RichTextEquals(property, value string) Filter {
	return Filter{Property: property, RichText: &TextCondition{Equals: value}}
}

// DateAfter matches date properties strictly after t.
func DateAfter(property string, t time.Time) Filter {
	return Filter{Property: property, Date: &DateCondition{After: FormatTime(t)}}
}

// And combines filters.
func And(filters ...Filter) Filter {
	return Filter{And: filters}
}

// FormatTime renders t the way Notion date properties expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
