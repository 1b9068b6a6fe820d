package ast

import (
	"fmt"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/diag"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

// Special header keys.
const (
	processorKey     = "$processor$"
	alwaysIncludeKey = "$always-include$"
	loopKey          = "$loop$"
)

// Parse parses src and classifies the result.
func Parse(src parse.Source, cfg parse.Config) ([]Item, error) {
	sections, err := parse.Parse(src, cfg)
	if err != nil {
		return nil, err
	}
	return FromSections(src, cfg, sections)
}

// FromSections classifies sections parsed from src with cfg. Commented
// sections and headers are dropped. A section that cannot be classified is
// skipped and reported; the returned error packs all such errors, each a
// *parse.Error.
func FromSections(src parse.Source, cfg parse.Config, sections []*parse.Section) ([]Item, error) {
	c := &classifier{src: src, cfg: cfg}
	var items []Item
	for _, s := range uncomment(sections) {
		if item := c.item(s); item != nil {
			items = append(items, item)
		}
	}
	return items, diag.PackErrors(c.errs)
}

// Invocation classifies s, a section found in a value of kind ui, as a
// component invocation.
func Invocation(src parse.Source, cfg parse.Config, s *parse.Section) (*ComponentInvocation, error) {
	c := &classifier{src: src, cfg: cfg}
	if s.IsCommented {
		c.errorf(s.Line, "commented section '%s' used as a value", s.Name)
		return nil, diag.PackErrors(c.errs)
	}
	ci := c.invocation(uncomment([]*parse.Section{s})[0])
	if err := diag.PackErrors(c.errs); err != nil {
		return nil, err
	}
	return ci, nil
}

type classifier struct {
	src  parse.Source
	cfg  parse.Config
	errs []*parse.Error
}

func (c *classifier) errorf(line int, format string, args ...any) {
	ctx := diag.NewLineContext(c.src.Name, c.src.Code, line-c.cfg.LineOffset)
	ctx.LineOffset = c.cfg.LineOffset
	c.errs = append(c.errs, &parse.Error{Message: fmt.Sprintf(format, args...), Context: *ctx})
}

func (c *classifier) item(s *parse.Section) Item {
	n := len(c.errs)
	var item Item
	switch {
	case s.Name == "import" && s.Kind == "":
		item = c.importItem(s)
	case s.Kind == "record":
		item = &Record{Name: s.Name, Fields: c.fields(s.Headers, "record field"), Line: s.Line}
	case s.Kind == "or-type":
		item = c.orType(s)
	case s.Kind != "" && isFunctionName(s.Name):
		item = c.function(s)
	case s.Kind == "component":
		item = c.componentDefinition(s)
	case s.Kind != "":
		item = c.variableDefinition(s)
	case strings.HasPrefix(s.Name, "$"):
		item = c.variableInvocation(s)
	default:
		item = c.invocation(s)
	}
	if len(c.errs) > n {
		return nil
	}
	return item
}

func (c *classifier) importItem(s *parse.Section) *Import {
	caption, ok := s.CaptionOrBody()
	if !ok || strings.TrimSpace(caption) == "" {
		c.errorf(s.Line, "import must have a module name")
		return nil
	}
	imp := &Import{Line: s.Line}
	module, alias, hasAlias := strings.Cut(caption, " as ")
	imp.Module = strings.TrimSpace(module)
	if hasAlias {
		imp.Alias = strings.TrimSpace(alias)
		if imp.Alias == "" || strings.ContainsAny(imp.Alias, " \t") {
			c.errorf(s.Line, "invalid import alias in '%s'", caption)
			return nil
		}
	} else {
		imp.Alias = imp.Module[strings.LastIndexByte(imp.Module, '/')+1:]
	}
	for _, h := range s.Headers {
		v, _ := h.StringValue()
		switch h.Key {
		case "exposing":
			imp.Exposing = append(imp.Exposing, splitList(v)...)
		case "export":
			imp.Export = append(imp.Export, splitList(v)...)
		default:
			c.errorf(h.Line, "unknown import header '%s'", h.Key)
		}
	}
	return imp
}

func splitList(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Converts headers that declare typed names, as used by records, functions
// and components.
func (c *classifier) fields(headers []*parse.Header, what string) []*Field {
	var fields []*Field
	for _, h := range headers {
		if h.Kind == "" {
			c.errorf(h.Line, "%s '%s' must have a kind", what, h.Key)
			continue
		}
		f := &Field{Name: strings.TrimPrefix(h.Key, "$"), Kind: h.Kind,
			Mutable: strings.HasPrefix(h.Key, "$"), Line: h.Line}
		if v := headerValue(h); !v.IsNull() {
			f.Default = &v
		}
		fields = append(fields, f)
	}
	return fields
}

func headerValue(h *parse.Header) Value {
	if h.Type == parse.KV {
		return Value{Text: h.Value, Line: h.Line}
	}
	return Value{Header: h, Line: h.Line}
}

func (c *classifier) orType(s *parse.Section) *OrType {
	o := &OrType{Name: s.Name, Line: s.Line}
	if len(s.Subsections) == 0 {
		c.errorf(s.Line, "or-type '%s' has no variants", s.Name)
		return nil
	}
	for _, sub := range s.Subsections {
		v := &Variant{Name: sub.Name, Line: sub.Line}
		switch kind := sub.Kind; {
		case kind == "record":
			v.Type = RecordVariant
			v.Fields = c.fields(sub.Headers, "record field")
		case kind == "" || kind == "constant" || strings.HasPrefix(kind, "constant "):
			v.Type = ConstantVariant
			v.Kind = strings.TrimSpace(strings.TrimPrefix(kind, "constant"))
			v.Value = sectionText(sub)
		default:
			v.Type = RegularVariant
			v.Kind = kind
			v.Value = sectionText(sub)
		}
		o.Variants = append(o.Variants, v)
	}
	return o
}

func sectionText(s *parse.Section) *Value {
	if s.Caption != nil {
		return &Value{Text: s.Caption, Line: s.Line}
	}
	if s.Body != nil {
		return &Value{Text: &s.Body.Value, Line: s.Body.Line}
	}
	return nil
}

func isFunctionName(name string) bool {
	i := strings.IndexByte(name, '(')
	return i > 0 && strings.HasSuffix(name, ")")
}

func (c *classifier) function(s *parse.Section) *Function {
	i := strings.IndexByte(s.Name, '(')
	f := &Function{Name: s.Name[:i], ReturnKind: s.Kind, Line: s.Line,
		Params: c.fields(s.Headers, "function parameter")}
	declared := make(map[string]bool)
	for _, p := range f.Params {
		declared[p.Name] = true
	}
	for _, name := range splitList(s.Name[i+1 : len(s.Name)-1]) {
		if name = strings.TrimPrefix(name, "$"); !declared[name] {
			c.errorf(s.Line, "function parameter '%s' must have a kind", name)
		}
	}
	if s.Body == nil {
		c.errorf(s.Line, "function '%s' has no body", f.Name)
		return nil
	}
	f.Body, f.BodyLine = s.Body.Value, s.Body.Line
	return f
}

func (c *classifier) componentDefinition(s *parse.Section) *ComponentDefinition {
	def := &ComponentDefinition{Name: s.Name, Line: s.Line,
		Args: c.fields(s.Headers, "argument")}
	if len(s.Subsections) != 1 {
		c.errorf(s.Line, "component '%s' must have exactly one child, found %d",
			s.Name, len(s.Subsections))
		return nil
	}
	def.Definition = c.invocation(s.Subsections[0])
	return def
}

func (c *classifier) variableDefinition(s *parse.Section) *VariableDefinition {
	name := strings.TrimPrefix(s.Name, "$")
	v := &VariableDefinition{Name: name, Kind: s.Kind,
		Mutable: strings.HasPrefix(s.Name, "$"), Line: s.Line}
	rest := *s
	rest.Headers = nil
	for _, h := range s.Headers {
		switch {
		case h.Key == processorKey:
			v.Processor = c.processor(h)
		case h.Key == alwaysIncludeKey:
			val, _ := h.StringValue()
			switch val {
			case "true":
				v.AlwaysInclude = true
			case "false":
			default:
				c.errorf(h.Line, "$always-include$ must be true or false, found '%s'", val)
			}
		case h.Condition != "" && strings.TrimPrefix(h.Key, "$") == name:
			v.Conditions = append(v.Conditions, &ConditionalValue{
				Condition: trimBraces(h.Condition), Value: headerValue(h), Line: h.Line})
		default:
			rest.Headers = append(rest.Headers, h)
		}
	}
	v.Value = Value{Section: &rest, Line: s.Line}
	return v
}

func (c *classifier) processor(h *parse.Header) string {
	val, ok := h.StringValue()
	if !ok || strings.TrimSpace(val) == "" {
		c.errorf(h.Line, "processor statement is blank")
	}
	return strings.TrimSpace(val)
}

func (c *classifier) variableInvocation(s *parse.Section) *VariableInvocation {
	v := &VariableInvocation{Name: strings.TrimPrefix(s.Name, "$"), Line: s.Line}
	rest := *s
	rest.Headers = nil
	for _, h := range s.Headers {
		switch h.Key {
		case "if":
			val, _ := h.StringValue()
			v.Condition = trimBraces(val)
		case processorKey:
			v.Processor = c.processor(h)
		default:
			rest.Headers = append(rest.Headers, h)
		}
	}
	v.Value = Value{Section: &rest, Line: s.Line}
	return v
}

func (c *classifier) invocation(s *parse.Section) *ComponentInvocation {
	ci := &ComponentInvocation{Name: s.Name, Line: s.Line}
	for _, h := range s.Headers {
		val, hasVal := h.StringValue()
		switch {
		case h.Key == "if" && h.Type == parse.KV:
			ci.Condition = trimBraces(val)
		case h.Key == "for" && h.Type == parse.KV:
			ci.Loop = c.forLoop(h, val)
		case h.Key == loopKey:
			ci.Loop = c.deprecatedLoop(h, val)
		case h.Key == "id" && h.Type == parse.KV:
			ci.ID = val
		case strings.HasPrefix(h.Key, "$on-") && strings.HasSuffix(h.Key, "$") && len(h.Key) > 5:
			if !hasVal || strings.TrimSpace(val) == "" {
				c.errorf(h.Line, "event '%s' needs an action", h.Key)
				continue
			}
			ci.Events = append(ci.Events, &Event{
				Name: h.Key[len("$on-") : len(h.Key)-1], Action: strings.TrimSpace(val), Line: h.Line})
		case len(h.Key) > 1 && strings.HasPrefix(h.Key, "$") && strings.HasSuffix(h.Key, "$"):
			c.errorf(h.Line, "unknown special header '%s'", h.Key)
		default:
			ci.Properties = append(ci.Properties, &Property{
				Key:       strings.TrimPrefix(h.Key, "$"),
				Source:    FromHeader,
				Value:     headerValue(h),
				Condition: trimBraces(h.Condition),
				Mutable:   strings.HasPrefix(h.Key, "$"),
				Line:      h.Line,
			})
		}
	}
	if s.Caption != nil {
		ci.Properties = append(ci.Properties, &Property{Source: FromCaption,
			Value: Value{Text: s.Caption, Line: s.Line}, Line: s.Line})
	}
	if s.Body != nil {
		ci.Properties = append(ci.Properties, &Property{Source: FromBody,
			Value: Value{Text: &s.Body.Value, Line: s.Body.Line}, Line: s.Body.Line})
	}
	for _, sub := range s.Subsections {
		ci.Children = append(ci.Children, c.invocation(sub))
	}
	return ci
}

// Parses "$x in $list" and "$x, $i in $list".
func (c *classifier) forLoop(h *parse.Header, val string) *Loop {
	vars, on, ok := strings.Cut(val, " in ")
	alias, counter, _ := strings.Cut(vars, ",")
	l := &Loop{On: strings.TrimSpace(on), Alias: loopVar(alias), Counter: loopVar(counter), Line: h.Line}
	if !ok || l.On == "" || l.Alias == "" || (strings.Contains(vars, ",") && l.Counter == "") {
		c.errorf(h.Line, "invalid loop '%s'", val)
		return nil
	}
	return l
}

// Parses "$list as $x".
func (c *classifier) deprecatedLoop(h *parse.Header, val string) *Loop {
	on, alias, ok := strings.Cut(val, " as ")
	l := &Loop{On: strings.TrimSpace(on), Alias: loopVar(alias), Line: h.Line}
	if !ok || l.On == "" || l.Alias == "" {
		c.errorf(h.Line, "invalid loop '%s'", val)
		return nil
	}
	return l
}

func loopVar(s string) string { return strings.TrimPrefix(strings.TrimSpace(s), "$") }

// Conditions may be written as "{ expr }".
func trimBraces(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func uncomment(sections []*parse.Section) []*parse.Section {
	var kept []*parse.Section
	for _, s := range sections {
		if s.IsCommented {
			continue
		}
		cp := *s
		cp.Headers = uncommentHeaders(s.Headers)
		cp.Subsections = uncomment(s.Subsections)
		kept = append(kept, &cp)
	}
	return kept
}

func uncommentHeaders(headers []*parse.Header) []*parse.Header {
	var kept []*parse.Header
	for _, h := range headers {
		if strings.HasPrefix(h.Key, "/") {
			continue
		}
		if len(h.Fields) > 0 || len(h.Sections) > 0 {
			cp := *h
			cp.Fields = uncommentHeaders(h.Fields)
			cp.Sections = uncomment(h.Sections)
			h = &cp
		}
		kept = append(kept, h)
	}
	return kept
}
