package parse

import "fmt"

// Section is a node of the parse tree.
type Section struct {
	Name        string     `json:"name" yaml:"name"`
	Kind        string     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Caption     *string    `json:"caption,omitempty" yaml:"caption,omitempty"`
	Headers     []*Header  `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body        *Body      `json:"body,omitempty" yaml:"body,omitempty"`
	Subsections []*Section `json:"subsections,omitempty" yaml:"subsections,omitempty"`
	// IsCommented is true when the section line starts with "/--" or "/---".
	IsCommented bool `json:"commented,omitempty" yaml:"commented,omitempty"`
	Line        int  `json:"line" yaml:"line"`
}

// Body is a block of free text. Its indentation has been normalized.
type Body struct {
	Value string `json:"value" yaml:"value"`
	Line  int    `json:"line" yaml:"line"`
}

// Header is one header of a section. Which fields are meaningful depends on
// Type:
//
//   - KV uses Value and Source.
//   - BlockRecord uses Caption, Body and Fields.
//   - SectionHeader uses Sections.
type Header struct {
	Type      HeaderType `json:"type" yaml:"type"`
	Key       string     `json:"key" yaml:"key"`
	Kind      string     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Condition string     `json:"condition,omitempty" yaml:"condition,omitempty"`
	Line      int        `json:"line" yaml:"line"`

	Value  *string     `json:"value,omitempty" yaml:"value,omitempty"`
	Source ValueSource `json:"source,omitempty" yaml:"source,omitempty"`

	Caption *string   `json:"caption,omitempty" yaml:"caption,omitempty"`
	Body    *Body     `json:"body,omitempty" yaml:"body,omitempty"`
	Fields  []*Header `json:"fields,omitempty" yaml:"fields,omitempty"`

	Sections []*Section `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// HeaderType distinguishes the shapes of [Header].
type HeaderType uint8

const (
	// KV is a plain "key: value" header.
	KV HeaderType = iota
	// BlockRecord is a header with fields given as "key.field: value" lines
	// or as lines following a block header, with an optional caption and
	// body.
	BlockRecord
	// SectionHeader is a block header holding sections, closed by
	// "-- end: section.key".
	SectionHeader
)

var headerTypeNames = [...]string{KV: "kv", BlockRecord: "block-record", SectionHeader: "section"}

func (t HeaderType) String() string {
	if int(t) < len(headerTypeNames) {
		return headerTypeNames[t]
	}
	return fmt.Sprintf("HeaderType(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t HeaderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ValueSource records where the value of a KV header was written.
type ValueSource uint8

const (
	// SourceHeader is an inline "key: value" line.
	SourceHeader ValueSource = iota
	// SourceCaption is the text after the colon of a block header.
	SourceCaption
	// SourceBody is the text after the blank line following a block header.
	SourceBody
)

var valueSourceNames = [...]string{SourceHeader: "header", SourceCaption: "caption", SourceBody: "body"}

func (s ValueSource) String() string {
	if int(s) < len(valueSourceNames) {
		return valueSourceNames[s]
	}
	return fmt.Sprintf("ValueSource(%d)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s ValueSource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Header returns the last header with the given key, or nil.
func (s *Section) Header(key string) *Header {
	for i := len(s.Headers) - 1; i >= 0; i-- {
		if s.Headers[i].Key == key {
			return s.Headers[i]
		}
	}
	return nil
}

// CaptionOrBody returns the caption of the section if it has one, and the
// body otherwise.
func (s *Section) CaptionOrBody() (string, bool) {
	if s.Caption != nil {
		return *s.Caption, true
	}
	if s.Body != nil {
		return s.Body.Value, true
	}
	return "", false
}

// StringValue returns the text of a KV header, or the caption of a
// BlockRecord header.
func (h *Header) StringValue() (string, bool) {
	switch {
	case h.Type == KV && h.Value != nil:
		return *h.Value, true
	case h.Type == BlockRecord && h.Caption != nil:
		return *h.Caption, true
	}
	return "", false
}

func (s *Section) addHeader(h *Header) {
	if h.Type == KV && h.Kind == "" && h.Condition == "" {
		if base, field, ok := cutDot(h.Key); ok {
			s.addField(base, field, h)
			return
		}
	}
	s.Headers = append(s.Headers, h)
}

// Adds a "base.field: value" line. An existing KV header named base is
// rewritten in place into a BlockRecord; its value becomes the caption or
// the body of the record, depending on where it was written.
func (s *Section) addField(base, field string, h *Header) {
	f := &Header{Type: KV, Key: field, Value: h.Value, Source: SourceHeader, Line: h.Line}
	if rec := s.Header(base); rec != nil {
		switch rec.Type {
		case KV:
			rec.Type = BlockRecord
			if rec.Value != nil {
				if rec.Source == SourceBody {
					rec.Body = &Body{Value: *rec.Value, Line: rec.Line}
				} else {
					rec.Caption = rec.Value
				}
			}
			rec.Value, rec.Source = nil, SourceHeader
			fallthrough
		case BlockRecord:
			rec.Fields = append(rec.Fields, f)
			return
		}
	}
	s.Headers = append(s.Headers, &Header{
		Type: BlockRecord, Key: base, Line: h.Line, Fields: []*Header{f}})
}

func cutDot(key string) (string, string, bool) {
	for i := 1; i < len(key)-1; i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
