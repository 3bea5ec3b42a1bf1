package service

import (
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 drops invalid byte sequences from model output before it is
// stored in a report or written to the audit log.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
