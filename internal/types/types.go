// Package types implements the Blend65 type system: a closed set of type
// kinds, interned TypeInfo values, and a pair-id compatibility cache, per
// spec.md §3.4.
package types

import "fmt"

// Kind is the closed set of type categories.
type Kind int

const (
	Byte Kind = iota
	Word
	Boolean
	Void
	String
	Pointer
	Array
	Function
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Boolean:
		return "bool"
	case Void:
		return "void"
	case String:
		return "string"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}

// ID identifies an interned TypeInfo within a Session's table.
type ID int

const InvalidID ID = -1

// Info is a single interned type value. Kind-specific payload fields are
// zero unless Kind calls for them (Pointer/Array use Elem; Array uses Len;
// Function uses Params/Result).
type Info struct {
	id         ID
	Kind       Kind
	Name       string // printable name, e.g. "byte", "word[4]", "ptr<byte>"
	Size       int    // byte size
	Signed     bool
	Assignable bool // whether values of this type may appear as assignment targets

	Elem   ID   // Pointer(T) / Array(T, ...)
	Len    int  // Array length; -1 if not yet known (inferred later)
	Params []ID // Function(params, ret)
	Result ID
}

func (t *Info) ID() ID { return t.id }

func (t *Info) String() string { return t.Name }

// Table interns TypeInfo values for one compilation session and caches
// pairwise compatibility decisions by (a, b) id pair, per spec.md §3.4
// ("types are interned; compatibility is cached by pair-id").
type Table struct {
	infos    []*Info
	byName   map[string]ID
	compatCache map[[2]ID]bool

	byteID, wordID, boolID, voidID, stringID, unknownID ID
}

// NewTable constructs a session-local type table with the primitive kinds
// pre-interned.
func NewTable() *Table {
	t := &Table{
		byName:      map[string]ID{},
		compatCache: map[[2]ID]bool{},
	}
	t.byteID = t.intern(&Info{Kind: Byte, Name: "byte", Size: 1, Signed: false, Assignable: true})
	t.wordID = t.intern(&Info{Kind: Word, Name: "word", Size: 2, Signed: false, Assignable: true})
	t.boolID = t.intern(&Info{Kind: Boolean, Name: "bool", Size: 1, Signed: false, Assignable: true})
	t.voidID = t.intern(&Info{Kind: Void, Name: "void", Size: 0, Assignable: false})
	t.stringID = t.intern(&Info{Kind: String, Name: "string", Size: 0, Assignable: false})
	t.unknownID = t.intern(&Info{Kind: Unknown, Name: "<unknown>", Size: 0, Assignable: false})
	return t
}

func (t *Table) Byte() ID    { return t.byteID }
func (t *Table) Word() ID    { return t.wordID }
func (t *Table) Bool() ID    { return t.boolID }
func (t *Table) Void() ID    { return t.voidID }
func (t *Table) Str() ID     { return t.stringID }
func (t *Table) Unknown() ID { return t.unknownID }

func (t *Table) intern(info *Info) ID {
	if id, ok := t.byName[info.Name]; ok {
		return id
	}
	id := ID(len(t.infos))
	info.id = id
	t.infos = append(t.infos, info)
	t.byName[info.Name] = id
	return id
}

// Lookup finds a previously interned type by its exact printable name
// (e.g. an enum's qualified "module.Name", or a primitive). Used where only
// a name is available and no TypeExpr round-trip makes sense (ilgen's
// function-signature fallback).
func (t *Table) Lookup(name string) (ID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

func (t *Table) Get(id ID) *Info {
	if id < 0 || int(id) >= len(t.infos) {
		return t.infos[t.unknownID]
	}
	return t.infos[id]
}

// Pointer interns (or reuses) a Pointer(elem) type.
func (t *Table) Pointer(elem ID) ID {
	name := fmt.Sprintf("ptr<%s>", t.Get(elem).Name)
	return t.intern(&Info{Kind: Pointer, Name: name, Size: 2, Elem: elem, Assignable: true})
}

// Array interns (or reuses) an Array(elem, len) type. len == -1 means the
// size has not been inferred yet (parser accepted `T[]`).
func (t *Table) Array(elem ID, length int) ID {
	lenPart := "?"
	if length >= 0 {
		lenPart = fmt.Sprintf("%d", length)
	}
	name := fmt.Sprintf("%s[%s]", t.Get(elem).Name, lenPart)
	size := 0
	if length >= 0 {
		size = length * t.Get(elem).Size
	}
	return t.intern(&Info{Kind: Array, Name: name, Size: size, Elem: elem, Len: length, Assignable: false})
}

// NamedByte interns a byte-sized type with its own distinct identity,
// rather than reusing the plain byte id, so enum declarations are
// nominally distinct from byte and from each other even though their
// runtime representation is a single byte. qualifiedName should include the
// declaring module to avoid cross-module collisions.
func (t *Table) NamedByte(qualifiedName string) ID {
	return t.intern(&Info{Kind: Byte, Name: qualifiedName, Size: 1, Assignable: true})
}

// Function interns (or reuses) a Function(params, ret) type.
func (t *Table) Function(params []ID, ret ID) ID {
	name := "fn("
	for i, p := range params {
		if i > 0 {
			name += ", "
		}
		name += t.Get(p).Name
	}
	name += ") " + t.Get(ret).Name
	info := &Info{Kind: Function, Name: name, Size: 2, Params: append([]ID(nil), params...), Result: ret, Assignable: false}
	return t.intern(info)
}

func pairKey(a, b ID) [2]ID {
	if a <= b {
		return [2]ID{a, b}
	}
	return [2]ID{b, a}
}

// AssignableTo reports whether a value of type src may be assigned (or
// implicitly widened) to a variable of type dst. Implements: byte->word
// implicit widening, bool<->byte bidirectional coercion, exact match for
// everything else, structural equality for arrays/functions.
func (t *Table) AssignableTo(src, dst ID) bool {
	key := pairKey(src, dst)
	if v, ok := t.compatCache[key]; ok {
		return v
	}
	v := t.computeAssignable(src, dst)
	t.compatCache[key] = v
	return v
}

func (t *Table) computeAssignable(src, dst ID) bool {
	if src == dst {
		return true
	}
	s, d := t.Get(src), t.Get(dst)
	if s.Kind == Unknown || d.Kind == Unknown {
		// error recovery: don't cascade further diagnostics
		return true
	}
	switch {
	case s.Kind == Byte && d.Kind == Word:
		return true // implicit widening
	case s.Kind == Boolean && d.Kind == Byte:
		return true
	case s.Kind == Byte && d.Kind == Boolean:
		return true
	case s.Kind == Array && d.Kind == Array:
		return t.AssignableTo(s.Elem, d.Elem) && (s.Len == d.Len || d.Len < 0)
	case s.Kind == Function && d.Kind == Function:
		return t.structurallyEqualFunction(s, d)
	default:
		return false
	}
}

func (t *Table) structurallyEqualFunction(a, b *Info) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return a.Result == b.Result
}

// RequiresNarrowing reports whether going from src to dst is a word->byte
// explicit-only narrowing conversion (never implicit).
func (t *Table) RequiresNarrowing(src, dst ID) bool {
	s, d := t.Get(src), t.Get(dst)
	return s.Kind == Word && d.Kind == Byte
}

// BinaryResult computes the result type of applying op to two operand
// types, per spec.md §3.4's "per-operator result-type rules." Returns
// Unknown and ok=false when the operator is not defined for the operand
// kinds.
func (t *Table) BinaryResult(opClass OperatorClass, lhs, rhs ID) (ID, bool) {
	l, r := t.Get(lhs), t.Get(rhs)
	switch opClass {
	case Arithmetic, Bitwise:
		if !isIntegral(l.Kind) || !isIntegral(r.Kind) {
			return t.unknownID, false
		}
		if l.Kind == Word || r.Kind == Word {
			return t.wordID, true
		}
		return t.byteID, true
	case Comparison:
		if !isIntegral(l.Kind) || !isIntegral(r.Kind) {
			return t.unknownID, false
		}
		return t.boolID, true
	case Logical:
		if l.Kind != Boolean && l.Kind != Byte {
			return t.unknownID, false
		}
		if r.Kind != Boolean && r.Kind != Byte {
			return t.unknownID, false
		}
		return t.boolID, true
	default:
		return t.unknownID, false
	}
}

func isIntegral(k Kind) bool {
	return k == Byte || k == Word || k == Boolean
}

// OperatorClass groups binary operators for result-type computation.
type OperatorClass int

const (
	Arithmetic OperatorClass = iota
	Bitwise
	Comparison
	Logical
)
