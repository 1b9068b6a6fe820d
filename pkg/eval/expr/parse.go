// Package expr implements the expressions used in FTD conditions, function
// bodies and computed values.
//
// The grammar, from the loosest binding operator to the tightest:
//
//	a ; b                 sequence, evaluates to b
//	a , b                 tuple, evaluates to a list
//	a || b
//	a && b
//	a == b, !=, <, <=, >, >=   (not chainable)
//	a + b, a - b
//	a * b, a / b, a % b
//	!a, -a
//	a ^ b                 (right associative)
//
// Operands are number, string and boolean literals, null, references like
// $x or ftd.dark-mode, calls like len($list) or $sum(a = 1, b = 2), and
// parenthesized expressions. Braces work like parentheses.
package expr

import (
	"fmt"
	"strings"
)

// Node is a node of an expression tree.
type Node interface {
	node()
}

// Literal is a constant.
type Literal struct{ Value any }

// Ref is a reference to a named value. Name has no "$" prefix.
type Ref struct{ Name string }

// Unary is a prefix operation.
type Unary struct {
	Op string
	X  Node
}

// Binary is an infix operation.
type Binary struct {
	Op   string
	X, Y Node
}

// Call is a function call. Func has no "$" prefix.
type Call struct {
	Func string
	Args []Arg
}

// Arg is an argument of a call. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Node
}

// Tuple is a comma-separated list of expressions.
type Tuple struct{ Items []Node }

// Seq is a semicolon-separated list of expressions.
type Seq struct{ Items []Node }

func (*Literal) node() {}
func (*Ref) node()     {}
func (*Unary) node()   {}
func (*Binary) node()  {}
func (*Call) node()    {}
func (*Tuple) node()   {}
func (*Seq) node()     {}

// Error is an error in parsing or evaluating an expression.
type Error struct {
	Message string
	// Pos is the byte offset in the expression, or -1 when unknown.
	Pos int
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return e.Message
	}
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Binding powers.
const (
	bpSeq     = 1
	bpTuple   = 2
	bpOr      = 3
	bpAnd     = 4
	bpCompare = 5
	bpAdd     = 6
	bpMul     = 7
	bpPrefix  = 8
	bpExp     = 9
)

var infixPower = map[string]int{
	";": bpSeq, ",": bpTuple, "||": bpOr, "&&": bpAnd,
	"==": bpCompare, "!=": bpCompare, "<": bpCompare, "<=": bpCompare, ">": bpCompare, ">=": bpCompare,
	"+": bpAdd, "-": bpAdd, "*": bpMul, "/": bpMul, "%": bpMul, "^": bpExp,
}

// Parse parses an expression.
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().typ == tEOF {
		return nil, &Error{Message: "empty expression", Pos: 0}
	}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.typ != tEOF {
		return nil, &Error{Message: fmt.Sprintf("unexpected %q", t.text), Pos: t.pos}
	}
	return n, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.typ == tOp && t.text == text
}

func (p *parser) expect(text string) error {
	if t := p.next(); t.typ != tOp || t.text != text {
		return &Error{Message: fmt.Sprintf("expected %q, found %s", text, describe(t)), Pos: t.pos}
	}
	return nil
}

func describe(t token) string {
	if t.typ == tEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

func (p *parser) expr(minPower int) (Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.typ != tOp {
			return left, nil
		}
		power, ok := infixPower[t.text]
		if !ok || power <= minPower {
			return left, nil
		}
		p.next()
		switch t.text {
		case ";", ",":
			items := []Node{left}
			for {
				item, err := p.expr(power)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if !p.isOp(t.text) {
					break
				}
				p.next()
			}
			if t.text == ";" {
				left = &Seq{items}
			} else {
				left = &Tuple{items}
			}
			continue
		}
		// Exponentiation is right associative: parse the right operand at a
		// power that lets another "^" bind.
		rightPower := power
		if t.text == "^" {
			rightPower = power - 1
		}
		right, err := p.expr(rightPower)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, X: left, Y: right}
		if power == bpCompare {
			if n := p.peek(); n.typ == tOp && infixPower[n.text] == bpCompare {
				return nil, &Error{Message: "comparison operators cannot be chained", Pos: n.pos}
			}
		}
	}
}

func (p *parser) prefix() (Node, error) {
	t := p.next()
	switch t.typ {
	case tNumber, tString:
		return &Literal{t.val}, nil
	case tIdent:
		switch t.text {
		case "true":
			return &Literal{true}, nil
		case "false":
			return &Literal{false}, nil
		case "null":
			return &Literal{nil}, nil
		}
		name := strings.TrimPrefix(t.text, "$")
		if name == "" {
			return nil, &Error{Message: "missing name after $", Pos: t.pos}
		}
		if p.isOp("(") {
			p.next()
			return p.call(name)
		}
		return &Ref{name}, nil
	case tOp:
		switch t.text {
		case "!", "-":
			x, err := p.expr(bpPrefix)
			if err != nil {
				return nil, err
			}
			if lit, ok := x.(*Literal); ok && t.text == "-" {
				switch v := lit.Value.(type) {
				case int:
					return &Literal{-v}, nil
				case float64:
					return &Literal{-v}, nil
				}
			}
			return &Unary{Op: t.text, X: x}, nil
		case "(", "{":
			closing := ")"
			if t.text == "{" {
				closing = "}"
			}
			x, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect(closing); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, &Error{Message: "unexpected " + describe(t), Pos: t.pos}
}

// Parses the arguments of a call after the opening parenthesis. Arguments
// bind tighter than tuples, so commas separate arguments.
func (p *parser) call(name string) (Node, error) {
	c := &Call{Func: name}
	if p.isOp(")") {
		p.next()
		return c, nil
	}
	for {
		var arg Arg
		if t := p.peek(); t.typ == tIdent && p.tokens[p.pos+1].typ == tOp && p.tokens[p.pos+1].text == "=" {
			arg.Name = strings.TrimPrefix(t.text, "$")
			p.pos += 2
		}
		v, err := p.expr(bpTuple)
		if err != nil {
			return nil, err
		}
		arg.Value = v
		c.Args = append(c.Args, arg)
		if p.isOp(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Refs returns the names referenced by n, in order of appearance. Names of
// called functions are not included.
func Refs(n Node) []string {
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Ref:
			names = append(names, n.Name)
		case *Unary:
			walk(n.X)
		case *Binary:
			walk(n.X)
			walk(n.Y)
		case *Call:
			for _, a := range n.Args {
				walk(a.Value)
			}
		case *Tuple:
			for _, item := range n.Items {
				walk(item)
			}
		case *Seq:
			for _, item := range n.Items {
				walk(item)
			}
		}
	}
	walk(n)
	return names
}
