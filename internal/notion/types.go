package notion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Page is a Notion page, which is also a row of a database.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Archived       bool                     `json:"archived"`
	URL            string                   `json:"url,omitempty"`
	Properties     map[string]PropertyValue `json:"properties"`
}

func (p Page) validate() error {
	if p.Object != "page" {
		return fmt.Errorf("%w: expected page object, got %q", ErrSchema, p.Object)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: page without id", ErrSchema)
	}
	return nil
}

// PropertyValue holds one property of a page. Only the field matching Type is
// set on reads; writes set exactly one field.
type PropertyValue struct {
	ID       string     `json:"id,omitempty"`
	Type     string     `json:"type,omitempty"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Date     *DateValue `json:"date,omitempty"`
	Number   *float64   `json:"number,omitempty"`
}

// RichText is a run of text.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	Text        *TextContent `json:"text,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Href        *string      `json:"href,omitempty"`
}

// TextContent is the payload of a text rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// Annotations are the style flags of a rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// DateValue is the value of a date property.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Title builds a title property value.
func Title(s string) PropertyValue {
	return PropertyValue{Title: []RichText{textRun(s)}}
}

// Text builds a rich text property value.
func Text(s string) PropertyValue {
	return PropertyValue{RichText: []RichText{textRun(s)}}
}

// Email builds an email property value.
func Email(s string) PropertyValue {
	return PropertyValue{Email: &s}
}

// Date builds a date property value.
func Date(t time.Time) PropertyValue {
	return PropertyValue{Date: &DateValue{Start: FormatTime(t)}}
}

// Number builds a number property value.
func Number(n float64) PropertyValue {
	return PropertyValue{Number: &n}
}

func textRun(s string) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: s}}
}

// Plain returns the concatenated plain text of runs.
func Plain(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
			continue
		}
		if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// PlainText returns the text of a title or rich text property.
func (v PropertyValue) PlainText() string {
	if len(v.Title) > 0 {
		return Plain(v.Title)
	}
	return Plain(v.RichText)
}

// Text returns the plain text of the named property.
func (p Page) Text(name string) string {
	return p.Properties[name].PlainText()
}

// EmailValue returns the named email property.
func (p Page) EmailValue(name string) string {
	v := p.Properties[name].Email
	if v == nil {
		return ""
	}
	return *v
}

// Time returns the start of the named date property.
func (p Page) Time(name string) (time.Time, bool) {
	d := p.Properties[name].Date
	if d == nil || d.Start == "" {
		return time.Time{}, false
	}
	return ParseTime(d.Start)
}

// NumberValue returns the named number property.
func (p Page) NumberValue(name string) (float64, bool) {
	n := p.Properties[name].Number
	if n == nil {
		return 0, false
	}
	return *n, true
}

// ParseTime accepts the date and date-time forms Notion returns.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Block is one content block of a page.
type Block struct {
	Object      string
	ID          string
	Type        string
	HasChildren bool
	Content     BlockContent
	Children    []Block
}

// BlockContent is the type-specific payload of a block, flattened over the
// block types the renderer understands.
type BlockContent struct {
	RichText []RichText `json:"rich_text,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
	Checked  bool       `json:"checked,omitempty"`
	Language string     `json:"language,omitempty"`
	Title    string     `json:"title,omitempty"`
	Icon     *Icon      `json:"icon,omitempty"`
	Kind     string     `json:"type,omitempty"`
	External *FileRef   `json:"external,omitempty"`
	File     *FileRef   `json:"file,omitempty"`
	URL      string     `json:"url,omitempty"`
}

// Icon is an emoji icon.
type Icon struct {
	Emoji string `json:"emoji,omitempty"`
}

// FileRef points at a hosted file.
type FileRef struct {
	URL string `json:"url"`
}

// Source returns the URL of a media block.
func (c BlockContent) Source() string {
	switch {
	case c.External != nil:
		return c.External.URL
	case c.File != nil:
		return c.File.URL
	default:
		return c.URL
	}
}

type blockJSON struct {
	Object      string  `json:"object"`
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	HasChildren bool    `json:"has_children"`
	Children    []Block `json:"children,omitempty"`
}

// UnmarshalJSON decodes the payload stored under the block's type key.
func (b *Block) UnmarshalJSON(data []byte) error {
	var head blockJSON
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{Object: head.Object, ID: head.ID, Type: head.Type, HasChildren: head.HasChildren, Children: head.Children}
	if payload, ok := raw[head.Type]; ok && len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &b.Content); err != nil {
			return fmt.Errorf("%w: block %s: %v", ErrSchema, head.ID, err)
		}
	}
	return nil
}

// MarshalJSON encodes the block in the same shape Notion uses.
func (b Block) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"object":       b.Object,
		"id":           b.ID,
		"type":         b.Type,
		"has_children": b.HasChildren,
	}
	if b.Type != "" {
		out[b.Type] = b.Content
	}
	if len(b.Children) > 0 {
		out["children"] = b.Children
	}
	return json.Marshal(out)
}
