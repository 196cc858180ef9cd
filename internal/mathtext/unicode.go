package mathtext

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// UnicodeTypesetter renders a practical subset of LaTeX as plain Unicode
// for terminals. Commands outside the subset are reported as
// ErrUnknownCommand so callers can fall back to source.
type UnicodeTypesetter struct{}

func (UnicodeTypesetter) Typeset(tex string, opts Options) (string, error) {
	tex = ExpandMacros(tex, opts.Macros)
	if strings.TrimSpace(tex) == "" {
		return "", ErrEmptyMath
	}
	if err := checkBraces(tex); err != nil {
		return "", err
	}
	p := &texParser{src: tex}
	out, err := p.parseUntil(0)
	if err != nil {
		return "", err
	}
	out = strings.Join(strings.Fields(out), " ")
	if opts.Display {
		return "  " + out, nil
	}
	return out, nil
}

var symbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ε",
	"varepsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ", "iota": "ι",
	"kappa": "κ", "lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ", "pi": "π",
	"rho": "ρ", "sigma": "σ", "tau": "τ", "upsilon": "υ", "phi": "φ",
	"varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ",
	"Pi": "Π", "Sigma": "Σ", "Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",

	"times": "×", "cdot": "·", "div": "÷", "pm": "±", "mp": "∓",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠",
	"approx": "≈", "equiv": "≡", "sim": "∼", "propto": "∝",
	"infty": "∞", "partial": "∂", "nabla": "∇",
	"sum": "∑", "prod": "∏", "int": "∫", "oint": "∮",
	"in": "∈", "notin": "∉", "subset": "⊂", "subseteq": "⊆", "supset": "⊃",
	"cup": "∪", "cap": "∩", "emptyset": "∅", "forall": "∀", "exists": "∃",
	"neg": "¬", "land": "∧", "lor": "∨",
	"to": "→", "rightarrow": "→", "leftarrow": "←", "Rightarrow": "⇒",
	"Leftarrow": "⇐", "leftrightarrow": "↔", "Leftrightarrow": "⇔", "implies": "⇒",
	"angle": "∠", "perp": "⊥", "parallel": "∥", "triangle": "△", "circ": "∘",
	"degree": "°", "prime": "′",
	"ldots": "…", "cdots": "⋯", "dots": "…",
	"quad": " ", "qquad": "  ",
	"sin": "sin", "cos": "cos", "tan": "tan", "cot": "cot", "sec": "sec",
	"csc": "csc", "log": "log", "ln": "ln", "exp": "exp", "lim": "lim",
	"max": "max", "min": "min", "det": "det", "gcd": "gcd",
	"left": "", "right": "", "displaystyle": "", "limits": "",
	"lbrace": "{", "rbrace": "}", "langle": "⟨", "rangle": "⟩",
	"lfloor": "⌊", "rfloor": "⌋", "lceil": "⌈", "rceil": "⌉",
}

var blackboard = map[rune]string{
	'R': "ℝ", 'N': "ℕ", 'Z': "ℤ", 'Q': "ℚ", 'C': "ℂ", 'P': "ℙ", 'H': "ℍ",
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶',
	'7': '⁷', '8': '⁸', '9': '⁹', '+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽',
	')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ', 'x': 'ˣ', 'y': 'ʸ', 'k': 'ᵏ', 'm': 'ᵐ',
	'a': 'ᵃ', 'b': 'ᵇ', 'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ', 't': 'ᵗ', '′': '′',
	'∘': '°',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆',
	'7': '₇', '8': '₈', '9': '₉', '+': '₊', '-': '₋', '=': '₌', '(': '₍',
	')': '₎', 'a': 'ₐ', 'e': 'ₑ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ', 'n': 'ₙ',
	'o': 'ₒ', 'x': 'ₓ', 'm': 'ₘ', 't': 'ₜ',
}

type texParser struct {
	src string
	pos int
}

// parseUntil consumes input until the matching close byte (0 for EOF).
func (p *texParser) parseUntil(closing byte) (string, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case closing != 0 && c == closing:
			p.pos++
			return b.String(), nil
		case c == '{':
			p.pos++
			inner, err := p.parseUntil('}')
			if err != nil {
				return "", err
			}
			b.WriteString(inner)
		case c == '\\':
			s, err := p.command()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c == '^' || c == '_':
			p.pos++
			arg, err := p.argument()
			if err != nil {
				return "", err
			}
			if c == '^' {
				b.WriteString(script(arg, superscripts, "^"))
			} else {
				b.WriteString(script(arg, subscripts, "_"))
			}
		case c == '~':
			p.pos++
			b.WriteByte(' ')
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			p.pos += size
			b.WriteRune(r)
		}
	}
	if closing != 0 {
		return "", fmt.Errorf("%w: missing %q", ErrUnbalanced, closing)
	}
	return b.String(), nil
}

// argument reads one group or a single token.
func (p *texParser) argument() (string, error) {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: missing argument", ErrUnbalanced)
	}
	switch p.src[p.pos] {
	case '{':
		p.pos++
		return p.parseUntil('}')
	case '\\':
		return p.command()
	}
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	return string(r), nil
}

func (p *texParser) optional() (string, bool, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return "", false, nil
	}
	p.pos++
	s, err := p.parseUntil(']')
	return s, true, err
}

func (p *texParser) command() (string, error) {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return "\\", nil
	}
	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case ',', ';', ':', ' ', '!':
			return " ", nil
		case '\\':
			return "\n", nil
		default:
			return string(c), nil
		}
	}
	name := p.src[start:p.pos]

	if s, ok := symbols[name]; ok {
		return s, nil
	}

	switch name {
	case "frac", "dfrac", "tfrac":
		num, err := p.argument()
		if err != nil {
			return "", err
		}
		den, err := p.argument()
		if err != nil {
			return "", err
		}
		return wrap(num) + "/" + wrap(den), nil
	case "sqrt":
		idx, ok, err := p.optional()
		if err != nil {
			return "", err
		}
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		root := "√"
		if ok {
			switch idx {
			case "3":
				root = "∛"
			case "4":
				root = "∜"
			default:
				root = script(idx, superscripts, "^") + "√"
			}
		}
		return root + wrap(arg), nil
	case "mathbb":
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, r := range arg {
			if s, ok := blackboard[r]; ok {
				b.WriteString(s)
			} else {
				b.WriteRune(r)
			}
		}
		return b.String(), nil
	case "text", "mathrm", "mathbf", "mathit", "operatorname", "textbf", "textit":
		return p.rawArgument()
	case "overline", "bar", "vec", "hat":
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		marks := map[string]string{"overline": "̅", "bar": "̄", "vec": "⃗", "hat": "̂"}
		return arg + marks[name], nil
	}
	return "", fmt.Errorf("%w: \\%s", ErrUnknownCommand, name)
}

// rawArgument reads a braced argument without interpreting it. Nested
// groups lose their braces; \{ and \} stay literal.
func (p *texParser) rawArgument() (string, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return p.argument()
	}
	var b strings.Builder
	depth := 0
	for i := p.pos; i < len(p.src); i++ {
		c := p.src[i]
		switch {
		case c == '\\' && i+1 < len(p.src) && (p.src[i+1] == '{' || p.src[i+1] == '}'):
			b.WriteByte(p.src[i+1])
			i++
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				p.pos = i + 1
				return b.String(), nil
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("%w: missing '}'", ErrUnbalanced)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// script maps every rune through table, or falls back to marker(arg).
func script(arg string, table map[rune]rune, marker string) string {
	var b strings.Builder
	for _, r := range arg {
		m, ok := table[r]
		if !ok {
			return marker + wrap(arg)
		}
		b.WriteRune(m)
	}
	return b.String()
}

// wrap parenthesizes compound expressions.
func wrap(s string) string {
	if utf8.RuneCountInString(s) <= 1 || isNumber(s) {
		return s
	}
	return "(" + s + ")"
}

func isNumber(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			return false
		}
	}
	return s != ""
}
