// Package batch packs aliased operation instances into a single GraphQL document.
package batch

import (
	"strconv"
	"strings"
)

// State is the lifecycle position of the current batch.
type State int

const (
	Open   State = iota // Accepting appended operation instances.
	Sealed              // Rendered and handed off; the next Append starts a fresh batch.
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Sealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// indent is the prefix applied to every line of an instance inside the document.
const indent = "    "

// Assembler accumulates aliased operation instances for one batch at a time.
// It is not safe for concurrent use.
type Assembler struct {
	aliasPrefix string
	buf         strings.Builder
	count       int
	aliases     []string
	state       State
}

// NewAssembler returns an Assembler that names instances <aliasPrefix><id>.
func NewAssembler(aliasPrefix string) *Assembler {
	return &Assembler{aliasPrefix: aliasPrefix, state: Open}
}

// Alias returns the alias name used for the given id.
func (a *Assembler) Alias(id int) string {
	return a.aliasPrefix + strconv.Itoa(id)
}

// Append adds "<alias><id>: <body>" to the open batch.
func (a *Assembler) Append(aliasID int, body string) {
	if a.state == Sealed {
		a.reset()
	}
	alias := a.Alias(aliasID)
	a.buf.WriteString("\n")
	a.buf.WriteString(indentLines(alias + ": " + body))
	a.aliases = append(a.aliases, alias)
	a.count++
}

// IsFull reports whether the number of instances appended since the last seal has reached size.
func (a *Assembler) IsFull(size int) bool {
	return a.state == Open && a.count >= size
}

// Len returns the number of instances in the open batch.
func (a *Assembler) Len() int {
	if a.state == Sealed {
		return 0
	}
	return a.count
}

// Aliases returns the aliases in the open batch, in append order.
func (a *Assembler) Aliases() []string {
	if a.state == Sealed {
		return nil
	}
	out := make([]string, len(a.aliases))
	copy(out, a.aliases)
	return out
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return a.state
}

// SealAndRender wraps the accumulated instances under rootType and returns the document.
// The accumulator is cleared so the next Append opens a new batch.
func (a *Assembler) SealAndRender(rootType string) string {
	doc := rootType + " {" + a.buf.String() + "\n}"
	a.state = Sealed
	a.buf.Reset()
	a.count = 0
	a.aliases = nil
	return doc
}

func (a *Assembler) reset() {
	a.buf.Reset()
	a.count = 0
	a.aliases = nil
	a.state = Open
}

func indentLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}
