package css

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// rgbPattern matches rgb() color function with integer channels only.
var rgbPattern = regexp.MustCompile(`(?i)\brgb\s*\(\s*([0-9,\s]+)\s*\)`)

// zeroUnits lists units which could be safely dropped from zero length.
var zeroUnits = map[string]bool{
	"px": true, "em": true, "%": true, "in": true, "cm": true,
	"mm": true, "pc": true, "pt": true, "ex": true,
}

// boxShorthands lists properties whose value follows top/right/bottom/left
// expansion rules, so repeated trailing tokens are redundant.
var boxShorthands = map[string]bool{
	"margin": true, "padding": true, "inset": true, "gap": true,
	"border-width": true, "border-style": true, "border-color": true, "border-radius": true,
	"scroll-margin": true, "scroll-padding": true,
}

// allZeros are values equivalent to a single zero.
var allZeros = map[string]bool{
	"0 0 0 0": true, "0 0 0": true, "0 0": true,
}

// foldRGB replaces every rgb(r,g,b) with #rrggbb. Channels above 255 are
// clamped, matches with other than three channels are left alone.
func foldRGB(value string) string {
	return rgbPattern.ReplaceAllStringFunc(value, func(match string) string {
		sub := rgbPattern.FindStringSubmatch(match)
		channels := strings.FieldsFunc(sub[1], func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(channels) != 3 {
			return match
		}
		var sb strings.Builder
		sb.WriteByte('#')
		for _, ch := range channels {
			n, err := strconv.Atoi(ch)
			if err != nil {
				return match
			}
			fmt.Fprintf(&sb, "%02x", min(n, 255))
		}
		return sb.String()
	})
}

// lexValue splits value fragment into CSS tokens. Unterminated strings and
// broken urls are rejected.
func lexValue(s string) ([]token, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.tt == css.BadStringToken || t.tt == css.BadURLToken {
			return nil, fmt.Errorf("unexpected %s %q at offset %d", t.tt, t.data, t.off)
		}
	}
	return tokens, nil
}

// simplifyPart normalizes single comma separated fragment of a value. On
// tokenization problems trimmed fragment is returned together with error.
func simplifyPart(s string, opts Options) (string, error) {
	s = strings.TrimSpace(s)
	tokens, err := lexValue(s)
	if err != nil {
		return s, fmt.Errorf("%w: %q: %w", ErrMalformedValue, s, err)
	}

	var (
		sb    strings.Builder
		depth int
	)
	for i, t := range tokens {
		switch t.tt {
		case css.WhitespaceToken:
			if i == 0 || i == len(tokens)-1 {
				continue
			}
			prev, next := tokens[i-1].tt, tokens[i+1].tt
			if prev == css.CommaToken || next == css.CommaToken ||
				prev == css.FunctionToken || prev == css.LeftParenthesisToken || next == css.RightParenthesisToken {
				continue
			}
			sb.WriteByte(' ')
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
			sb.WriteString(t.data)
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
			sb.WriteString(t.data)
		case css.NumberToken:
			sb.WriteString(simplifyNumber(t.data))
		case css.PercentageToken, css.DimensionToken:
			num, unit := splitDimension(t.data)
			num = simplifyNumber(num)
			// inside functions (calc) units of zero may be significant
			if num == "0" && depth == 0 && zeroUnits[strings.ToLower(unit)] {
				unit = ""
			}
			sb.WriteString(num)
			sb.WriteString(unit)
		case css.HashToken:
			sb.WriteString(simplifyHex(t.data))
		case css.URLToken:
			if opts.UnquoteURLs {
				sb.WriteString(simplifyURL(t.data))
			} else {
				sb.WriteString(t.data)
			}
		default:
			sb.WriteString(t.data)
		}
	}

	out := sb.String()
	if allZeros[out] {
		out = "0"
	}
	return out, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isDigit(c) && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// splitDimension cuts numeric part from the unit.
func splitDimension(s string) (string, string) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
		i++
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return s[:i], s[i:]
}

// simplifyNumber turns any zero into "0" and strips leading zeros of the
// integer part before decimal point: 0.5 -> .5, 00.25 -> .25.
func simplifyNumber(num string) string {
	if num == "" {
		return num
	}
	sign, rest := "", num
	if rest[0] == '+' || rest[0] == '-' {
		sign, rest = rest[:1], rest[1:]
	}
	mantissa, exp := rest, ""
	if k := strings.IndexAny(rest, "eE"); k >= 0 {
		mantissa, exp = rest[:k], rest[k:]
	}
	if mantissa != "" && strings.Trim(mantissa, "0.") == "" && strings.Contains(mantissa, "0") {
		return "0"
	}
	if intPart, frac, ok := strings.Cut(mantissa, "."); ok && intPart != "" && strings.Trim(intPart, "0") == "" {
		mantissa = "." + frac
	}
	return sign + mantissa + exp
}

// simplifyHex folds #aabbcc into #abc and lower-cases hex colors.
func simplifyHex(hash string) string {
	digits := hash[1:]
	if !isHex(digits) {
		return hash
	}
	switch len(digits) {
	case 6:
		d := strings.ToLower(digits)
		if d[0] == d[1] && d[2] == d[3] && d[4] == d[5] {
			return "#" + d[0:1] + d[2:3] + d[4:5]
		}
		return "#" + d
	case 3, 4, 8:
		return strings.ToLower(hash)
	}
	return hash
}

// simplifyURL removes quotes around URL when it could be safely written
// unquoted.
func simplifyURL(u string) string {
	open := strings.IndexByte(u, '(')
	if open < 0 || !strings.HasSuffix(u, ")") {
		return u
	}
	inner := strings.TrimSpace(u[open+1 : len(u)-1])
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		if unquoted := inner[1 : len(inner)-1]; isSafeURL(unquoted) {
			inner = unquoted
		}
	}
	return "url(" + inner + ")"
}

func isSafeURL(u string) bool {
	if u == "" {
		return false
	}
	for i := 0; i < len(u); i++ {
		if u[i] < 0x20 || strings.IndexByte(" \"'()\\#,;", u[i]) >= 0 {
			return false
		}
	}
	return true
}

// reduceBox drops trailing tokens of box shorthand value which repeat
// their opposite side: "1px 2px 1px 2px" -> "1px 2px", "4px 4px" -> "4px".
func reduceBox(value string) string {
	v, suffix := value, ""
	if k := strings.IndexByte(value, '!'); k >= 0 {
		v, suffix = strings.TrimSpace(value[:k]), value[k:]
	}
	if v == "" || strings.Contains(v, "/") {
		return value
	}
	tokens, err := tokenize(v)
	if err != nil {
		return value
	}
	var fields []string
	for _, field := range splitTopLevel(tokens, css.WhitespaceToken) {
		fields = append(fields, text(field))
	}
	if len(fields) == 4 && fields[3] == fields[1] {
		fields = fields[:3]
	}
	if len(fields) == 3 && fields[2] == fields[0] {
		fields = fields[:2]
	}
	if len(fields) == 2 && fields[1] == fields[0] {
		fields = fields[:1]
	}
	out := strings.Join(fields, " ")
	if suffix != "" {
		out += " " + suffix
	}
	return out
}
