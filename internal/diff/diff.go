// Package diff aligns two line sequences and produces the edit script and
// summary shown when two snapshots are compared.
//
// Alignment is LCS-minimal: the common prefix and suffix are matched first,
// the remaining middle is solved with Myers' O(ND) shortest edit script in
// linear space, which prefers a deletion over an insertion when both extend
// equally far. Inside
// every run of consecutive changes, deletions and insertions are then paired
// in order into replacements; surplus deletions precede surplus insertions.
package diff

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the type of a line-level operation.
type Kind int

const (
	Equal Kind = iota
	Insert
	Delete
	Replace
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Op is one line-level operation. BaseLine and TargetLine are 1-based line
// numbers on each side, zero when the side has no line (Insert on the base
// side, Delete on the target side).
type Op struct {
	Kind       Kind   `json:"kind"`
	BaseLine   int    `json:"base_line,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`
	Base       string `json:"base,omitempty"`
	Target     string `json:"target,omitempty"`
}

// Summary counts lines. A replacement counts as one removed and one added line.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Result is the alignment of a base and a target sequence.
type Result struct {
	Summary Summary `json:"summary"`
	Script  []Op    `json:"edit_script"`
}

// Identical reports whether the two sides had no differences.
func (r Result) Identical() bool {
	return r.Summary.Added == 0 && r.Summary.Removed == 0
}

// Changes returns only the non-equal operations.
func (r Result) Changes() []Op {
	var out []Op
	for _, op := range r.Script {
		if op.Kind != Equal {
			out = append(out, op)
		}
	}
	return out
}

// ErrScriptMismatch is returned by Apply when the script does not fit the base.
var ErrScriptMismatch = errors.New("diff: edit script does not match base")

// Lines splits normalized text into lines. Empty text has no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Compare aligns base against target.
func Compare(base, target []string) Result {
	raw := align(base, target)
	script := pairReplacements(raw)

	var sum Summary
	for _, op := range script {
		switch op.Kind {
		case Equal:
			sum.Unchanged++
		case Insert:
			sum.Added++
		case Delete:
			sum.Removed++
		case Replace:
			sum.Added++
			sum.Removed++
		}
	}
	return Result{Summary: sum, Script: script}
}

// CompareText is Compare over normalized texts.
func CompareText(base, target string) Result {
	return Compare(Lines(base), Lines(target))
}

// Apply replays script over base and returns the reconstructed target.
func Apply(base []string, script []Op) ([]string, error) {
	out := make([]string, 0, len(base))
	i := 0
	consume := func(op Op) error {
		if i >= len(base) {
			return fmt.Errorf("%w: %s past end of base at line %d", ErrScriptMismatch, op.Kind, i+1)
		}
		if base[i] != op.Base {
			return fmt.Errorf("%w: %s expects %q at line %d, found %q", ErrScriptMismatch, op.Kind, op.Base, i+1, base[i])
		}
		i++
		return nil
	}

	for _, op := range script {
		switch op.Kind {
		case Equal:
			if err := consume(op); err != nil {
				return nil, err
			}
			out = append(out, op.Base)
		case Replace:
			if err := consume(op); err != nil {
				return nil, err
			}
			out = append(out, op.Target)
		case Delete:
			if err := consume(op); err != nil {
				return nil, err
			}
		case Insert:
			out = append(out, op.Target)
		default:
			return nil, fmt.Errorf("%w: unknown operation %v", ErrScriptMismatch, op.Kind)
		}
	}
	if i != len(base) {
		return nil, fmt.Errorf("%w: %d base lines left unconsumed", ErrScriptMismatch, len(base)-i)
	}
	return out, nil
}

// pairReplacements rewrites each maximal run of deletions and insertions so
// that the i-th deletion and the i-th insertion become one Replace.
func pairReplacements(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for i := 0; i < len(ops); {
		if ops[i].Kind == Equal {
			out = append(out, ops[i])
			i++
			continue
		}

		var dels, ins []Op
		for ; i < len(ops) && ops[i].Kind != Equal; i++ {
			if ops[i].Kind == Delete {
				dels = append(dels, ops[i])
			} else {
				ins = append(ins, ops[i])
			}
		}

		n := min(len(dels), len(ins))
		for k := 0; k < n; k++ {
			out = append(out, Op{
				Kind:       Replace,
				BaseLine:   dels[k].BaseLine,
				TargetLine: ins[k].TargetLine,
				Base:       dels[k].Base,
				Target:     ins[k].Target,
			})
		}
		out = append(out, dels[n:]...)
		out = append(out, ins[n:]...)
	}
	return out
}
