package token

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrTokenValue         = errors.New("invalid value error")
)

// Parsed is a [[LEVEL.NAME[.VALUE][:DATE(fmt)]]] reference. Names are upper
// case; AttributeValue is empty for two-part tokens.
type Parsed struct {
	AttributeLevel string
	AttributeName  string
	AttributeValue string
	Format         string
}

var dateModifier = regexp.MustCompile(`(?i):DATE\(([^()]*)\)$`)

func Parse(tok string) (Parsed, error) {
	if len(tok) < 4 || !strings.HasPrefix(tok, "[[") || !strings.HasSuffix(tok, "]]") {
		return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidTokenFormat, tok)
	}
	body := tok[2 : len(tok)-2]

	var p Parsed
	if m := dateModifier.FindStringSubmatchIndex(body); m != nil {
		p.Format = body[m[2]:m[3]]
		body = body[:m[0]]
	}
	if strings.Contains(body, ":") {
		return Parsed{}, fmt.Errorf("%w: only DATE modifiers are supported in %q", ErrInvalidTokenFormat, tok)
	}

	parts := strings.Split(body, ".")
	if len(parts) < 2 || slices.Contains(parts, "") {
		return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidTokenFormat, tok)
	}
	p.AttributeLevel = strings.ToUpper(parts[0])
	if len(parts) == 2 {
		p.AttributeName = strings.ToUpper(parts[1])
		return p, nil
	}
	p.AttributeName = strings.ToUpper(parts[1])
	p.AttributeValue = strings.ToUpper(parts[len(parts)-1])
	return p, nil
}
