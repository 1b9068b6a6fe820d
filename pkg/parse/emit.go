package parse

import "strings"

// Emit writes sections as canonical FTD source. Parsing the result yields
// the same tree, except for line numbers and the source of header values
// that cannot be written where they came from.
//
// Headers are written inline for as long as they can be; the first header
// that needs a block header, and all headers after it, are written as block
// headers. Sections with children are closed with "-- end:", and so is every
// nested section.
func Emit(sections []*Section) string {
	var e emitter
	for i, s := range sections {
		if i > 0 {
			e.WriteByte('\n')
		}
		e.section(s, 0)
	}
	return e.String()
}

type emitter struct {
	strings.Builder
}

func (e *emitter) section(s *Section, depth int) {
	if s.IsCommented {
		e.WriteString("/")
	}
	e.WriteString("-- " + kindPrefix(s.Kind) + s.Name + ":")
	multiLineCaption := s.Caption != nil && strings.Contains(*s.Caption, "\n")
	if s.Caption != nil && !multiLineCaption {
		e.WriteString(" " + escapeInline(*s.Caption))
	}
	e.WriteByte('\n')

	i := 0
	for ; i < len(s.Headers) && inlineable(s.Headers[i]); i++ {
		e.inlineHeader(s.Headers[i])
	}
	if multiLineCaption || i < len(s.Headers) {
		if multiLineCaption {
			e.WriteString("\n-- " + s.Name + ".caption:\n" + escapeText(*s.Caption) + "\n")
		}
		for _, h := range s.Headers[i:] {
			e.WriteByte('\n')
			e.blockHeader(s.Name, h)
		}
		if s.Body != nil {
			e.WriteString("\n-- " + s.Name + ".body:\n\n" + escapeText(s.Body.Value) + "\n")
		}
	} else if s.Body != nil {
		e.WriteString("\n" + escapeText(s.Body.Value) + "\n")
	}

	if len(s.Subsections) > 0 || depth > 0 {
		for _, child := range s.Subsections {
			e.WriteByte('\n')
			e.section(child, depth+1)
		}
		e.WriteString("\n-- end: " + s.Name + "\n")
	}
}

func (e *emitter) inlineHeader(h *Header) {
	if h.Type == KV {
		e.WriteString(headerKey(h) + ":" + inlineValue(h.Value) + "\n")
		return
	}
	e.WriteString(headerKey(h) + ":" + inlineValue(h.Caption) + "\n")
	for _, f := range h.Fields {
		e.WriteString(h.Key + "." + f.Key + ":" + inlineValue(f.Value) + "\n")
	}
}

func (e *emitter) blockHeader(section string, h *Header) {
	key, prefix := h.Key, "-- "
	if strings.HasPrefix(key, "/") {
		key, prefix = key[1:], "/-- "
	}
	e.WriteString(prefix + kindPrefix(h.Kind) + section + "." + key + ":")
	cond := ""
	if h.Condition != "" {
		cond = "if: " + h.Condition + "\n"
	}

	switch h.Type {
	case KV:
		if h.Value != nil && h.Source != SourceBody && !strings.Contains(*h.Value, "\n") {
			e.WriteString(" " + escapeInline(*h.Value) + "\n" + cond)
			return
		}
		e.WriteString("\n" + cond)
		if h.Value != nil {
			e.WriteString("\n" + escapeText(*h.Value) + "\n")
		}
	case BlockRecord:
		e.WriteString(inlineValue(h.Caption) + "\n" + cond)
		for _, f := range h.Fields {
			e.WriteString(headerKey(f) + ":" + inlineValue(f.Value) + "\n")
		}
		if h.Body != nil {
			e.WriteString("\n" + escapeText(h.Body.Value) + "\n")
		}
	case SectionHeader:
		e.WriteString("\n" + cond)
		for _, s := range h.Sections {
			e.WriteByte('\n')
			e.section(s, 1)
		}
		e.WriteString("\n-- end: " + section + "." + key + "\n")
	}
}

// Reports whether a header can be written as inline header lines and parse
// back to the same header.
func inlineable(h *Header) bool {
	if strings.Contains(h.Key, ".") {
		return false
	}
	switch h.Type {
	case KV:
		return h.Source == SourceHeader && singleLine(h.Value) &&
			!(h.Key == "caption" && h.Kind == "" && h.Condition == "")
	case BlockRecord:
		if h.Body != nil || !singleLine(h.Caption) {
			return false
		}
		for _, f := range h.Fields {
			if f.Type != KV || f.Kind != "" || f.Condition != "" ||
				strings.Contains(f.Key, ".") || !singleLine(f.Value) {
				return false
			}
		}
		return len(h.Fields) > 0
	}
	return false
}

func singleLine(s *string) bool { return s == nil || !strings.Contains(*s, "\n") }

func headerKey(h *Header) string {
	key := kindPrefix(h.Kind) + h.Key
	if h.Condition != "" {
		key += " if " + h.Condition
	}
	return key
}

func kindPrefix(kind string) string {
	if kind == "" {
		return ""
	}
	return kind + " "
}

func inlineValue(s *string) string {
	if s == nil {
		return ""
	}
	return " " + escapeInline(*s)
}

func escapeInline(s string) string { return strings.ReplaceAll(s, ";;", `\;;`) }

// Escapes free text so that none of its lines reads as a marker or a
// comment.
func escapeText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		l = escapeInline(l)
		trimmed := strings.TrimLeft(l, " \t")
		if markerOf(trimmed) >= 0 {
			l = l[:len(l)-len(trimmed)] + `\` + trimmed
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}
