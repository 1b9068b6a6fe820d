package parse

import (
	"strings"
)

// parser holds the state of parsing one document.
type parser struct {
	name   string
	src    string
	offset int
	lines  []line
	pos    int
}

// An entry of the stack of sections waiting for "-- end:".
type openSection struct {
	sec    *Section
	canEnd bool
}

func (p *parser) peek() (line, bool) {
	if p.pos < len(p.lines) {
		return p.lines[p.pos], true
	}
	return line{}, false
}

func (p *parser) skipBlank() {
	for p.pos < len(p.lines) && p.lines[p.pos].kind == blankLine {
		p.pos++
	}
}

func (p *parser) lineNum(l line) int { return l.num + p.offset }

// Parses sections until EOF, or until "-- end: term" when term is not empty.
// In the latter case, opener is the line that started the block and is used
// in the error when the end marker is missing.
func (p *parser) parseSections(term string, opener line) ([]*Section, error) {
	var stack []*openSection
	flatten := func() []*Section {
		secs := make([]*Section, len(stack))
		for i, e := range stack {
			secs[i] = e.sec
		}
		return secs
	}
	for {
		l, ok := p.peek()
		if !ok {
			break
		}
		switch l.kind {
		case blankLine:
			p.pos++
		case textLine:
			return nil, p.errorf(l, "expected a section, found '%s'", strings.TrimSpace(l.text))
		case subsectionLine:
			if len(stack) == 0 {
				_, name := splitKind(beforeColon(l.rest))
				return nil, p.errorf(l, "subsection '%s' has no parent section", name)
			}
			sub, err := p.parseSection(l, true)
			if err != nil {
				return nil, err
			}
			parent := stack[len(stack)-1].sec
			parent.Subsections = append(parent.Subsections, sub)
		case sectionLine:
			name, isEnd := endName(l)
			if !isEnd {
				sec, err := p.parseSection(l, false)
				if err != nil {
					return nil, err
				}
				stack = append(stack, &openSection{sec, true})
				continue
			}
			p.pos++
			if name == "" {
				return nil, p.errorf(l, "section name not provided for end")
			}
			i := len(stack) - 1
			for ; i >= 0; i-- {
				if stack[i].canEnd && stack[i].sec.Name == name {
					break
				}
			}
			if i < 0 {
				if term != "" && name == term {
					return flatten(), nil
				}
				return nil, p.errorf(l, "No section found to end: %s", name)
			}
			e := stack[i]
			for _, child := range stack[i+1:] {
				e.sec.Subsections = append(e.sec.Subsections, child.sec)
			}
			e.canEnd = false
			stack = stack[:i+1]
		}
	}
	if term != "" {
		return nil, p.errorf(opener, "section header '%s' is not closed with -- end: %s", term, term)
	}
	return flatten(), nil
}

func endName(l line) (string, bool) {
	if l.kind != sectionLine || !strings.HasPrefix(l.rest, "end:") {
		return "", false
	}
	return strings.TrimSpace(l.rest[len("end:"):]), true
}

// Parses the section starting at the current line. Subsections don't have
// block headers; their body ends at the next section or subsection line.
func (p *parser) parseSection(l line, sub bool) (*Section, error) {
	pre, value, ok := splitColon(l.rest)
	if !ok {
		return nil, p.errorf(l, ": is missing in: %s", strings.TrimSpace(l.text))
	}
	kind, name := splitKind(pre)
	if name == "" {
		return nil, p.errorf(l, "section name not provided in: %s", strings.TrimSpace(l.text))
	}
	sec := &Section{
		Name: name, Kind: kind, Caption: optional(value),
		IsCommented: l.commented, Line: p.lineNum(l),
	}
	p.pos++

	for {
		l, ok := p.peek()
		if !ok || l.kind != textLine {
			break
		}
		if err := p.inlineHeader(sec, l); err != nil {
			return nil, err
		}
		p.pos++
	}
	if l, ok := p.peek(); !ok || l.kind != blankLine {
		return sec, nil
	}

	p.skipBlank()
	for {
		l, ok := p.peek()
		if !ok {
			return sec, nil
		}
		switch l.kind {
		case textLine:
			if sec.Body != nil {
				return nil, p.errorf(l, "more than one body")
			}
			sec.Body = p.readText("")
		case sectionLine:
			if sub || !isBlockHeaderOf(sec, l) {
				return sec, nil
			}
			if err := p.blockHeader(sec, l); err != nil {
				return nil, err
			}
		default:
			return sec, nil
		}
		p.skipBlank()
	}
}

func (p *parser) inlineHeader(sec *Section, l line) error {
	text := strings.TrimSpace(l.text)
	pre, value, ok := splitColon(text)
	if !ok {
		return p.errorf(l, "start section body '%s' after a newline!!", text)
	}
	pre, cond := splitCondition(pre)
	kind, key := splitKind(pre)
	if key == "caption" && kind == "" && cond == "" {
		if sec.Caption != nil {
			return p.errorf(l, "more than one caption")
		}
		sec.Caption = optional(value)
		return nil
	}
	sec.addHeader(&Header{
		Type: KV, Key: key, Kind: kind, Condition: cond,
		Value: optional(value), Source: SourceHeader, Line: p.lineNum(l),
	})
	return nil
}

func isBlockHeaderOf(sec *Section, l line) bool {
	if _, isEnd := endName(l); isEnd {
		return false
	}
	_, name := splitKind(beforeColon(l.rest))
	return strings.HasPrefix(name, sec.Name+".") && len(name) > len(sec.Name)+1
}

// Parses a "-- section.key:" line and what belongs to it.
func (p *parser) blockHeader(sec *Section, l line) error {
	pre, value, ok := splitColon(l.rest)
	if !ok {
		return p.errorf(l, ": is missing in: %s", strings.TrimSpace(l.text))
	}
	pre, cond := splitCondition(pre)
	kind, name := splitKind(pre)
	key := name[len(sec.Name)+1:]

	if m, _, ok := strings.Cut(key, "."); ok && sec.isModule(m) {
		child := l
		child.rest = strings.Replace(l.rest, sec.Name+".", "", 1)
		s, err := p.parseSection(child, false)
		if err != nil {
			return err
		}
		sec.Subsections = append(sec.Subsections, s)
		return nil
	}

	switch {
	case key == "caption" && kind == "" && cond == "":
		if sec.Caption != nil {
			return p.errorf(l, "more than one caption")
		}
		p.pos++
		if body := p.readText(value); body != nil {
			sec.Caption = &body.Value
		}
		return nil
	case key == "body" && kind == "" && cond == "":
		if sec.Body != nil {
			return p.errorf(l, "more than one body")
		}
		p.pos++
		sec.Body = p.readText(value)
		return nil
	}

	if l.commented {
		key = "/" + key
	}
	h := &Header{Key: key, Kind: kind, Condition: cond, Line: p.lineNum(l)}
	sec.Headers = append(sec.Headers, h)
	p.pos++
	if next, ok := p.peek(); ok && next.kind == textLine {
		if c, found := strings.CutPrefix(strings.TrimSpace(next.text), "if:"); found {
			h.Condition = strings.TrimSpace(c)
			p.pos++
		}
	}

	caption := optional(value)
	if caption != nil && !p.atFieldLine() {
		h.Type, h.Value, h.Source = KV, caption, SourceCaption
		return nil
	}

	var fields []*Header
	for {
		next, ok := p.peek()
		if !ok || next.kind != textLine {
			break
		}
		text := strings.TrimSpace(next.text)
		pre, value, ok := splitColon(text)
		if !ok {
			return p.errorf(next, "start section body '%s' after a newline!!", text)
		}
		pre, cond := splitCondition(pre)
		kind, key := splitKind(pre)
		fields = append(fields, &Header{
			Type: KV, Key: key, Kind: kind, Condition: cond,
			Value: optional(value), Source: SourceHeader, Line: p.lineNum(next),
		})
		p.pos++
	}

	var body *Body
	if next, ok := p.peek(); ok && next.kind == blankLine {
		save := p.pos
		p.skipBlank()
		if next, ok := p.peek(); ok && next.kind == textLine {
			body = p.readText("")
		} else {
			p.pos = save
		}
	}

	switch {
	case len(fields) > 0:
		h.Type, h.Caption, h.Body, h.Fields = BlockRecord, caption, body, fields
	case body != nil:
		h.Type, h.Value, h.Source = KV, &body.Value, SourceBody
	default:
		h.Type, h.Source = KV, SourceBody
		if p.opensSectionHeader(sec, name) {
			children, err := p.parseSections(name, l)
			if err != nil {
				return err
			}
			h.Type, h.Source, h.Sections = SectionHeader, SourceHeader, children
		}
	}
	return nil
}

// Reports whether the next non-blank line is a "key: value" line.
func (p *parser) atFieldLine() bool {
	l, ok := p.peek()
	if !ok || l.kind != textLine {
		return false
	}
	_, _, hasColon := splitColon(strings.TrimSpace(l.text))
	return hasColon
}

// Decides whether an empty block header holds sections. It does when it is
// followed by its own end marker, or by an unrelated section with the end
// marker appearing later.
func (p *parser) opensSectionHeader(sec *Section, term string) bool {
	i := p.pos
	for i < len(p.lines) && p.lines[i].kind == blankLine {
		i++
	}
	if i == len(p.lines) || p.lines[i].kind != sectionLine {
		return false
	}
	next := p.lines[i]
	if name, isEnd := endName(next); isEnd {
		return name == term
	}
	if isBlockHeaderOf(sec, next) {
		return false
	}
	for _, l := range p.lines[i:] {
		if name, isEnd := endName(l); isEnd && name == term {
			return true
		}
	}
	return false
}

// Reads text lines up to the next section or subsection line. When first is
// not empty, it is the first line of the text. The text is normalized: blank
// lines at either end are dropped, and the indentation common to all
// non-blank lines is removed. Empty text reads as nil.
func (p *parser) readText(first string) *Body {
	var texts []string
	var nums []int
	inline := strings.TrimSpace(first) != ""
	if inline {
		texts = append(texts, strings.TrimSpace(first))
		nums = append(nums, p.lines[p.pos-1].num)
	}
	for {
		l, ok := p.peek()
		if !ok || (l.kind != textLine && l.kind != blankLine) {
			break
		}
		if l.kind == blankLine {
			texts = append(texts, "")
		} else {
			texts = append(texts, l.text)
		}
		nums = append(nums, l.num)
		p.pos++
	}

	from, to := 0, len(texts)
	for from < to && texts[from] == "" {
		from++
	}
	for to > from && texts[to-1] == "" {
		to--
	}
	if from == to {
		return nil
	}
	texts = texts[from:to]
	// An inline first line is already trimmed and does not count for the
	// margin.
	skip := 0
	if inline && from == 0 {
		skip = 1
	}
	margin, found := "", false
	for _, t := range texts[skip:] {
		if t == "" {
			continue
		}
		indent := t[:len(t)-len(strings.TrimLeft(t, " \t"))]
		if !found {
			margin, found = indent, true
		} else {
			margin = commonPrefix(margin, indent)
		}
	}
	for i, t := range texts[skip:] {
		texts[skip+i] = strings.TrimPrefix(t, margin)
	}
	return &Body{Value: strings.Join(texts, "\n"), Line: nums[from] + p.offset}
}

func (s *Section) isModule(name string) bool {
	for _, h := range s.Headers {
		if h.Key == name && h.Kind == "module" {
			return true
		}
	}
	return false
}

// Splits s on the first colon that is not preceded by a backslash.
func splitColon(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' && (i == 0 || s[i-1] != '\\') {
			return strings.ReplaceAll(s[:i], `\:`, ":"), s[i+1:], true
		}
	}
	return "", "", false
}

func beforeColon(s string) string {
	pre, _, ok := splitColon(s)
	if !ok {
		return s
	}
	return pre
}

// Splits "key if condition" into key and condition.
func splitCondition(s string) (string, string) {
	if i := strings.Index(s, " if "); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+len(" if "):])
	}
	return s, ""
}

// Splits "kind name" into kind and name. The name is the last
// whitespace-separated token; whitespace inside the first pair of
// parentheses does not separate tokens.
func splitKind(s string) (string, string) {
	fields := strings.Fields(collapseParens(s))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}

func collapseParens(s string) string {
	open := strings.IndexByte(s, '(')
	if open == -1 {
		return s
	}
	end := strings.IndexByte(s[open:], ')')
	if end == -1 {
		return s
	}
	end += open
	return s[:open] + strings.Join(strings.Fields(s[open:end]), "") + s[end:]
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func commonPrefix(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}
