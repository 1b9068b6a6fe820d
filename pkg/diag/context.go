package diag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Context is a range of text in an FTD document. It is typically used for
// errors that can be associated with a part of the source, like parse errors
// and unresolved references.
type Context struct {
	Name   string
	Source string
	Ranging
	// LineOffset is added to every line number derived from Source. Hosts set
	// it for documents that are embedded in a larger file.
	LineOffset int
}

// NewContext creates a new Context.
func NewContext(name, source string, r Ranger) *Context {
	return &Context{Name: name, Source: source, Ranging: r.Range()}
}

// NewLineContext creates a Context covering one whole line of source.
func NewLineContext(name, source string, line int) *Context {
	return NewContext(name, source, LineRanging(source, line))
}

// Variables controlling the style of the culprit.
var (
	culpritStart       = "\033[1;4m"
	culpritEnd         = "\033[m"
	culpritPlaceHolder = "^"
)

// Line returns the 1-based line number of the start of the range, or 0 if the
// position is unknown.
func (c *Context) Line() int {
	if c.checkPosition() != nil {
		return 0
	}
	return strings.Count(c.Source[:c.From], "\n") + 1 + c.LineOffset
}

func (c *Context) column() int {
	before := c.Source[:c.From]
	return utf8.RuneCountInString(before[strings.LastIndexByte(before, '\n')+1:]) + 1
}

func (c *Context) describeStart() string {
	if err := c.checkPosition(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s:%d:%d", c.Name, c.Line(), c.column())
}

// Show shows the context: the start position followed by the relevant source
// excerpt, with the culprit highlighted. Lines after the first are prefixed
// with indent plus enough spaces to line up with the first line.
func (c *Context) Show(indent string) string {
	desc := c.describeStart()
	if c.checkPosition() != nil {
		return desc
	}
	desc += ": "
	return desc + c.relevantSource(indent+strings.Repeat(" ", displayWidth(desc)))
}

func (c *Context) checkPosition() error {
	if c.From == -1 {
		return fmt.Errorf("%s, unknown position", c.Name)
	} else if c.From < 0 || c.To > len(c.Source) || c.From > c.To {
		return fmt.Errorf("%s, invalid position %d-%d", c.Name, c.From, c.To)
	}
	return nil
}

func (c *Context) relevantSource(indent string) string {
	before, culprit, after := c.Source[:c.From], c.Source[c.From:c.To], c.Source[c.To:]

	var sb strings.Builder
	sb.WriteString(lastLine(before))

	// A trailing newline in the culprit is not shown; otherwise the rest of
	// the line after the culprit is.
	tail := ""
	if strings.HasSuffix(culprit, "\n") {
		culprit = culprit[:len(culprit)-1]
	} else {
		tail = firstLine(after)
	}
	if culprit == "" {
		culprit = culpritPlaceHolder
	}
	for i, line := range strings.Split(culprit, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
			sb.WriteString(indent)
		}
		sb.WriteString(culpritStart + line + culpritEnd)
	}
	sb.WriteString(tail)
	return sb.String()
}

func firstLine(s string) string {
	i := strings.IndexByte(s, '\n')
	if i == -1 {
		return s
	}
	return s[:i]
}

func lastLine(s string) string {
	// When s does not contain '\n', LastIndexByte returns -1, which happens to
	// be what we want.
	return s[strings.LastIndexByte(s, '\n')+1:]
}

// Returns the number of terminal columns s occupies. East Asian wide and
// fullwidth runes occupy two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}
