// Package diag accumulates errors and warnings tagged by source token. It is the synchronous
// replacement for the teacher's channel-based util.perror: spec.md §5 requires the core to be
// single-threaded, so there is no listener goroutine here, just an appended slice guarded by
// nothing because nothing else touches it concurrently.
package diag

import (
	"fmt"
	"strings"

	"vslac/src/token"
)

// Entry pairs a diagnostic message with the token that produced it.
type Entry struct {
	Token   token.Token
	Message string
}

// String renders the Entry as "<message> at <line>:<col>".
func (e Entry) String() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Token.Pos)
}

// Bag is an accumulator of errors and warnings. A Bag's zero value is ready to use.
type Bag struct {
	errors   []Entry
	warnings []Entry
}

// Error appends an error diagnostic tagged by tok.
func (b *Bag) Error(tok token.Token, format string, args ...interface{}) {
	b.errors = append(b.errors, Entry{Token: tok, Message: fmt.Sprintf(format, args...)})
}

// Warn appends a warning diagnostic tagged by tok.
func (b *Bag) Warn(tok token.Token, format string, args ...interface{}) {
	b.warnings = append(b.warnings, Entry{Token: tok, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the accumulated error diagnostics in emission order.
func (b *Bag) Errors() []Entry {
	return b.errors
}

// Warnings returns the accumulated warning diagnostics in emission order.
func (b *Bag) Warnings() []Entry {
	return b.warnings
}

// HasErrors reports whether any error diagnostic has been appended.
func (b *Bag) HasErrors() bool {
	return len(b.errors) > 0
}

// String renders all errors then all warnings, one per line.
func (b *Bag) String() string {
	sb := strings.Builder{}
	for _, e := range b.errors {
		sb.WriteString("error: ")
		sb.WriteString(e.String())
		sb.WriteRune('\n')
	}
	for _, w := range b.warnings {
		sb.WriteString("warning: ")
		sb.WriteString(w.String())
		sb.WriteRune('\n')
	}
	return sb.String()
}
