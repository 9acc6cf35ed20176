package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidIdentifier is returned for schema or savepoint names that are
// not plain identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// maxIdentifierLen bounds names interpolated into SQL.
const maxIdentifierLen = 128

// ValidateIdentifier checks that name is a plain identifier and returns
// it in NFC form: a letter or underscore first, then letters, digits or
// underscores. SQLite compares names byte-wise, so composed and
// decomposed spellings are folded to one form here.
func ValidateIdentifier(name string) (string, error) {
	n := norm.NFC.String(name)
	if n == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if len(n) > maxIdentifierLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidIdentifier, len(n), maxIdentifierLen)
	}
	for i, r := range n {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return n, nil
}

// quoteIdentifier validates name and returns it double-quoted, so
// keywords such as "order" are usable as names too.
func quoteIdentifier(name string) (string, error) {
	n, err := ValidateIdentifier(name)
	if err != nil {
		return "", err
	}
	return `"` + n + `"`, nil
}

// quoteLiteral returns s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
