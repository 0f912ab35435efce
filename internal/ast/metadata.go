package ast

import "github.com/blend65/blend65/internal/types"

// MetadataKey enumerates the out-of-band annotations later phases attach to
// AST nodes. The AST itself stays immutable; everything mutable lives here,
// per spec.md §3.2 and §9.
type MetadataKey int

const (
	MetaResolvedType MetadataKey = iota
	MetaCoercion                 // []CoercionKind applied before the expression's raw type is used
	MetaIntrinsic                // intrinsic registry entry name, when this CallExpr targets one
	MetaConstValue                // compile-time constant fold result (for const exprs / array sizes)
	MetaInferredArrayLen
	MetaIsHotPath
	MetaIsReadOnly
	MetaIsWriteOnly
	MetaLoopDepth
)

// CoercionKind tags an implicit or explicit conversion the type checker
// determined is needed before an operation executes, per spec.md §4.3c.
type CoercionKind int

const (
	CoerceZeroExtend CoercionKind = iota
	CoerceTruncate
	CoerceBoolToByte
	CoerceByteToBool
)

// Metadata is the session-wide NodeID -> (key -> value) store. One instance
// is shared by all semantic passes for one compilation; it is never attached
// to the node values themselves.
type Metadata struct {
	values map[NodeID]map[MetadataKey]any
}

func NewMetadata() *Metadata {
	return &Metadata{values: map[NodeID]map[MetadataKey]any{}}
}

func (m *Metadata) Set(id NodeID, key MetadataKey, value any) {
	bucket, ok := m.values[id]
	if !ok {
		bucket = map[MetadataKey]any{}
		m.values[id] = bucket
	}
	bucket[key] = value
}

func (m *Metadata) Get(id NodeID, key MetadataKey) (any, bool) {
	bucket, ok := m.values[id]
	if !ok {
		return nil, false
	}
	v, ok := bucket[key]
	return v, ok
}

// TypeOf is a convenience accessor for the common case of reading back the
// resolved type of an expression.
func (m *Metadata) TypeOf(n Node) (types.ID, bool) {
	v, ok := m.Get(n.ID(), MetaResolvedType)
	if !ok {
		return types.InvalidID, false
	}
	return v.(types.ID), true
}

func (m *Metadata) SetType(n Node, t types.ID) {
	m.Set(n.ID(), MetaResolvedType, t)
}

func (m *Metadata) Coercions(n Node) []CoercionKind {
	v, ok := m.Get(n.ID(), MetaCoercion)
	if !ok {
		return nil
	}
	return v.([]CoercionKind)
}

func (m *Metadata) AddCoercion(n Node, c CoercionKind) {
	existing := m.Coercions(n)
	m.Set(n.ID(), MetaCoercion, append(existing, c))
}
