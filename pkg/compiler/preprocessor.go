package compiler

import (
	"io/fs"
	"path"
	"strings"

	"tlog.app/go/errors"
)

// Macro is a #define: object-like when Args is nil.
type Macro struct {
	Args []string
	Body string
}

type preprocessor struct {
	fsys    fs.FS
	defines map[string]Macro
	stack   map[string]bool // includes being expanded, for cycle detection
	done    map[string]bool
}

// Preprocess handles directive lines before lexing.
//
// #define and #undef maintain macros which are substituted on identifier
// boundaries outside string literals. #include "file" is read from fsys
// relative to the including file; with a nil fsys, and for <system>
// includes, the line is dropped. Every other directive is dropped.
// Dropped and consumed lines stay as empty lines so line numbers hold.
// An included file is spliced in whole, so lines after an #include are
// numbered as in the expanded text: they move down by the included
// file's line count minus one.
func Preprocess(src string, fsys fs.FS) (string, error) {
	pp := &preprocessor{
		fsys:    fsys,
		defines: make(map[string]Macro),
		stack:   make(map[string]bool),
		done:    make(map[string]bool),
	}

	return pp.process(src, ".")
}

func (pp *preprocessor) process(src, dir string) (string, error) {
	var out strings.Builder

	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "#") {
			out.WriteString(applyDefines(line, pp.defines))
			out.WriteString("\n")
			continue
		}

		directive, rest := splitWord(strings.TrimSpace(trimmed[1:]))

		switch directive {
		case "define":
			err := pp.define(rest)
			if err != nil {
				return "", err
			}
		case "undef":
			name, _ := splitWord(rest)
			delete(pp.defines, name)
		case "include":
			text, err := pp.include(rest, dir)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
		}

		out.WriteString("\n")
	}

	return strings.TrimSuffix(out.String(), "\n"), nil
}

func (pp *preprocessor) define(rest string) error {
	if rest == "" {
		return nil
	}

	end := 0
	for end < len(rest) && isIdentPart(rune(rest[end])) {
		end++
	}

	name := rest[:end]
	if name == "" || !isIdentStart(rune(name[0])) {
		return errors.New("invalid macro name in #define %s", rest)
	}

	rest = rest[end:]

	var args []string
	if strings.HasPrefix(rest, "(") {
		closeParen := strings.IndexByte(rest, ')')
		if closeParen < 0 {
			return errors.New("unterminated macro parameter list for %s", name)
		}

		args = []string{}
		for _, a := range strings.Split(rest[1:closeParen], ",") {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}

		rest = rest[closeParen+1:]
	}

	body := strings.TrimSpace(rest)
	if args == nil {
		body = applyDefines(body, pp.defines)
	}

	pp.defines[name] = Macro{Args: args, Body: body}

	return nil
}

func (pp *preprocessor) include(rest, dir string) (string, error) {
	if !strings.HasPrefix(rest, `"`) || pp.fsys == nil {
		return "", nil
	}

	closing := strings.IndexByte(rest[1:], '"')
	if closing < 0 {
		return "", errors.New("invalid include directive: #include %s", rest)
	}

	name := path.Clean(path.Join(dir, rest[1:closing+1]))

	if pp.stack[name] {
		return "", errors.New("circular include detected: %s", name)
	}
	if pp.done[name] {
		return "", nil
	}
	pp.done[name] = true

	content, err := fs.ReadFile(pp.fsys, name)
	if err != nil {
		return "", errors.Wrap(err, "read include %s", name)
	}

	pp.stack[name] = true
	defer delete(pp.stack, name)

	text, err := pp.process(string(content), path.Dir(name))
	if err != nil {
		return "", errors.Wrap(err, "in %s", name)
	}

	return text, nil
}

func splitWord(s string) (word, rest string) {
	end := strings.IndexAny(s, " \t")
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimSpace(s[end:])
}

// applyDefines substitutes macros in input on identifier boundaries and
// leaves string literals alone.
func applyDefines(input string, defines map[string]Macro) string {
	if len(defines) == 0 {
		return input
	}

	var sb strings.Builder
	n := len(input)

	for i := 0; i < n; {
		c := input[i]

		switch {
		case c == '"':
			end := closingQuote(input, i)
			if end < 0 {
				sb.WriteString(input[i:])
				return sb.String()
			}
			sb.WriteString(input[i : end+1])
			i = end + 1

		case isIdentStart(rune(c)):
			start := i
			for i < n && isIdentPart(rune(input[i])) {
				i++
			}
			word := input[start:i]

			m, ok := defines[word]
			switch {
			case !ok:
				sb.WriteString(word)
			case m.Args == nil:
				sb.WriteString(m.Body)
			default:
				expanded, next, ok := expandCall(input, i, word, defines)
				if !ok {
					sb.WriteString(word)
					continue
				}
				sb.WriteString(expanded)
				i = next
			}

		default:
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String()
}

// expandCall expands the function-like macro name, which ends at i.
// It reports false when no matching argument list follows.
func expandCall(input string, i int, name string, defines map[string]Macro) (string, int, bool) {
	m := defines[name]

	j := i
	for j < len(input) && (input[j] == ' ' || input[j] == '\t') {
		j++
	}
	if j >= len(input) || input[j] != '(' {
		return "", i, false
	}
	j++

	var args []string
	var cur strings.Builder
	depth := 1

	for ; j < len(input) && depth > 0; j++ {
		switch c := input[j]; {
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')':
			depth--
			if depth > 0 {
				cur.WriteByte(c)
			}
		case c == ',' && depth == 1:
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	if depth != 0 {
		return "", i, false
	}

	if last := strings.TrimSpace(cur.String()); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	if len(args) != len(m.Args) {
		return "", i, false
	}

	// Arguments are expanded first, then substituted in one pass over the
	// body so an argument never rewrites another.
	params := make(map[string]Macro, len(args))
	for k, param := range m.Args {
		params[param] = Macro{Body: applyDefines(args[k], defines)}
	}

	body := applyDefines(m.Body, params)

	// The macro is not expanded again inside its own body.
	outer := make(map[string]Macro, len(defines))
	for k, v := range defines {
		if k != name {
			outer[k] = v
		}
	}

	return applyDefines(body, outer), j, true
}

// closingQuote returns the index of the quote closing the string opened at
// open, or -1. Backslash escapes are skipped.
func closingQuote(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}

	return -1
}
