package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType uint8

const (
	tEOF tokenType = iota
	tNumber
	tString
	tIdent
	tOp
)

type token struct {
	typ tokenType
	// Text of an identifier or operator; for numbers and strings the literal
	// value is in val.
	text string
	val  any
	pos  int
}

// Multi-character operators come before their prefixes.
var operators = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	"<", ">", "!", "+", "-", "*", "/", "%", "^", ",", ";", "(", ")", "=", "{", "}",
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for {
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i == len(src) {
			return append(tokens, token{typ: tEOF, pos: i}), nil
		}
		start := i
		c := src[i]
		switch {
		case c >= '0' && c <= '9':
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			text := src[start:i]
			var val any
			if strings.Contains(text, ".") {
				f, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, &Error{Message: fmt.Sprintf("invalid number %q", text), Pos: start}
				}
				val = f
			} else {
				n, err := strconv.Atoi(text)
				if err != nil {
					return nil, &Error{Message: fmt.Sprintf("invalid number %q", text), Pos: start}
				}
				val = n
			}
			tokens = append(tokens, token{typ: tNumber, text: text, val: val, pos: start})
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return nil, &Error{Message: "unterminated string", Pos: start}
			}
			s, err := strconv.Unquote(src[i : j+1])
			if err != nil {
				return nil, &Error{Message: "invalid string " + src[i:j+1], Pos: start}
			}
			i = j + 1
			tokens = append(tokens, token{typ: tString, text: src[start:i], val: s, pos: start})
		case c == '\'':
			j := strings.IndexByte(src[i+1:], '\'')
			if j == -1 {
				return nil, &Error{Message: "unterminated string", Pos: start}
			}
			s := src[i+1 : i+1+j]
			i += j + 2
			tokens = append(tokens, token{typ: tString, text: src[start:i], val: s, pos: start})
		case c == '$' || isIdentStart(src, i):
			i += runeLen(src, i)
			for i < len(src) && isIdentPart(src, i) {
				i += runeLen(src, i)
			}
			tokens = append(tokens, token{typ: tIdent, text: src[start:i], pos: start})
		default:
			op := ""
			for _, o := range operators {
				if strings.HasPrefix(src[i:], o) {
					op = o
					break
				}
			}
			if op == "" {
				r, _ := utf8.DecodeRuneInString(src[i:])
				return nil, &Error{Message: fmt.Sprintf("unexpected character %q", r), Pos: start}
			}
			i += len(op)
			tokens = append(tokens, token{typ: tOp, text: op, pos: start})
		}
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func runeLen(s string, i int) int {
	_, n := utf8.DecodeRuneInString(s[i:])
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r == '_' || unicode.IsLetter(r)
}

// Names may contain dots, "#" and dashes, as in "ftd.dark-mode" or
// "lib#colors.text". A dash is part of a name only when a letter follows
// it, so "a - b" and "a-1" are subtractions.
func isIdentPart(s string, i int) bool {
	c := s[i]
	switch {
	case c == '.' || c == '#' || c == '_' || isDigit(c):
		return true
	case c == '-':
		return i+1 < len(s) && isIdentStart(s, i+1)
	}
	return isIdentStart(s, i)
}
