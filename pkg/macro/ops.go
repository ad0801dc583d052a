package macro

import (
	"fmt"
	"strconv"

	"bumpcount/pkg/counter"
)

// DefaultPrefix is prepended to every operation name to form the macro name,
// e.g. counter_bump!(x).
const DefaultPrefix = "counter_"

// Op is one of the five counter operations reachable from source.
type Op int

const (
	OpCreate Op = iota // counter_create!(name)
	OpBump             // counter_bump!(name)      -> value, then value+1 stored
	OpPeek             // counter_peek!(name)      -> value
	OpSet              // counter_set!(name, int)
	OpNext             // counter_next!(name)      increments, expands to nothing
)

var opNames = [...]string{
	OpCreate: "create",
	OpBump:   "bump",
	OpPeek:   "peek",
	OpSet:    "set",
	OpNext:   "next",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// macroTable maps full macro names (prefix + op) to their Op.
func macroTable(prefix string) map[string]Op {
	table := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		table[prefix+name] = Op(op)
	}
	return table
}

// decode picks the argument shape for op.
func (op Op) decode(tokens []Token) (Args, error) {
	if op == OpSet {
		return decodeNameValue(tokens)
	}
	return decodeName(tokens)
}

// apply performs exactly one store operation. ok is false for operations
// that produce no value.
func (op Op) apply(store *counter.Store, args Args) (v int32, ok bool, err error) {
	switch op {
	case OpCreate:
		store.Create(args.Name)
		return 0, false, nil
	case OpSet:
		store.Set(args.Name, args.Value)
		return 0, false, nil
	case OpBump:
		v, err = store.Bump(args.Name)
		return v, err == nil, err
	case OpPeek:
		v, err = store.Peek(args.Name)
		return v, err == nil, err
	case OpNext:
		return 0, false, store.Next(args.Name)
	default:
		return 0, false, fmt.Errorf("unknown operation %v", op)
	}
}

// encode renders a result as source text. Values are parenthesised so a
// negative result stays one operand in the surrounding expression.
func encode(v int32, ok bool) string {
	if !ok {
		return ""
	}
	return "(" + strconv.FormatInt(int64(v), 10) + ")"
}
