// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ilgen lowers the checked AST into il.Module/il.Function values,
// per spec.md §4.4. Local variables are emitted as mem2reg-style
// load/store slots rather than already-SSA registers; internal/ssa later
// promotes them to true SSA form with phi nodes.
package ilgen

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/intrinsics"
	"github.com/blend65/blend65/internal/symbols"
	"github.com/blend65/blend65/internal/types"
)

// Generator translates one module's AST into an il.Module, given the
// results of semantic analysis.
type Generator struct {
	Types   *types.Table
	Meta    *ast.Metadata
	Diags   *diag.Collector
	Globals *symbols.GlobalSymbolTable
}

func NewGenerator(typeTable *types.Table, meta *ast.Metadata, diags *diag.Collector, globals *symbols.GlobalSymbolTable) *Generator {
	return &Generator{Types: typeTable, Meta: meta, Diags: diags, Globals: globals}
}

// Generate lowers one checked module program into an il.Module.
func (g *Generator) Generate(prog *ast.Program) *il.Module {
	mod := &il.Module{Name: prog.ModuleName}
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.VariableDecl:
			mod.Globals = append(mod.Globals, g.genGlobal(prog.ModuleName, decl))
		case *ast.FunctionDecl:
			if decl.Body != nil {
				mod.Functions = append(mod.Functions, g.genFunction(prog.ModuleName, decl))
			}
		case *ast.MemoryMapDecl:
			mod.Globals = append(mod.Globals, g.genMemoryMap(prog.ModuleName, decl))
		}
	}
	return mod
}

func (g *Generator) genGlobal(moduleName string, decl *ast.VariableDecl) *il.GlobalVariable {
	t, _ := g.Meta.TypeOf(decl)
	gv := &il.GlobalVariable{
		Name: decl.Name, Module: moduleName, Type: t, IsConst: decl.IsConst, Exported: decl.Exported,
	}
	switch decl.Storage {
	case ast.StorageZeroPage:
		gv.Storage = il.StorageZeroPage
	case ast.StorageData:
		gv.Storage = il.StorageData
	case ast.StorageMap:
		gv.Storage = il.StorageMap
	default:
		gv.Storage = il.StorageRAM
	}
	if decl.Initializer != nil {
		gv.InitValue = g.foldConstList(decl.Initializer)
	}
	return gv
}

func (g *Generator) genMemoryMap(moduleName string, decl *ast.MemoryMapDecl) *il.GlobalVariable {
	return &il.GlobalVariable{Name: decl.Name, Module: moduleName, Storage: il.StorageMap}
}

// foldConstList returns the flattened constant words backing a global's
// initializer (a single value, or every element of an array literal).
func (g *Generator) foldConstList(e ast.Expr) []uint16 {
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		switch ex.LitKind {
		case ast.LitBool:
			if ex.Bool {
				return []uint16{1}
			}
			return []uint16{0}
		default:
			return []uint16{ex.Int}
		}
	case *ast.ArrayLiteralExpr:
		var out []uint16
		for _, el := range ex.Elements {
			out = append(out, g.foldConstList(el)...)
		}
		return out
	default:
		return nil
	}
}

// funcGen holds the per-function state threaded through statement/expression
// lowering.
type funcGen struct {
	g    *Generator
	fn   *il.Function
	cur  cfg.BlockID
	slots map[string]il.Register
	slotTypes map[string]types.ID

	breakTargets    []cfg.BlockID
	continueTargets []cfg.BlockID
}

func (g *Generator) genFunction(moduleName string, decl *ast.FunctionDecl) *il.Function {
	fn := il.NewFunction(decl.Name, moduleName)
	fn.Exported = decl.Exported
	fn.ResultType, _ = g.Meta.TypeOf(decl)

	fg := &funcGen{g: g, fn: fn, cur: fn.CFG.Entry, slots: map[string]il.Register{}, slotTypes: map[string]types.ID{}}

	for _, p := range decl.Params {
		pt := g.resolveParamType(p)
		slot := fn.NewRegister()
		fg.slots[p.Name] = slot
		fg.slotTypes[p.Name] = pt
		fn.Params = append(fn.Params, slot)
		fn.ParamTypes = append(fn.ParamTypes, pt)
	}

	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})
	fg.cur = body

	fg.genBlock(decl.Body)

	if !fg.blockTerminated() {
		if fn.ResultType == g.Types.Void() {
			fn.Terminate(fg.cur, il.Instruction{Op: il.OpReturnVoid})
		} else {
			fn.Terminate(fg.cur, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Const(0, fn.ResultType)}})
		}
	}
	return fn
}

func (g *Generator) resolveParamType(p ast.Param) types.ID {
	// Parameter types were already resolved and recorded by sema on the
	// enclosing FunctionDecl's scope; ilgen re-resolves here defensively
	// since only the declared TypeExpr, not the scope, is reachable from
	// the AST node itself.
	return g.typeExprFallback(p.Type)
}

func (g *Generator) typeExprFallback(te *ast.TypeExpr) types.ID {
	if te == nil {
		return g.Types.Void()
	}
	var base types.ID
	switch te.Name {
	case "byte":
		base = g.Types.Byte()
	case "word":
		base = g.Types.Word()
	case "bool":
		base = g.Types.Bool()
	case "string":
		base = g.Types.Str()
	default:
		if id, ok := g.Types.Lookup(te.Name); ok {
			base = id
		} else {
			base = g.Types.Unknown()
		}
	}
	if te.Pointer {
		base = g.Types.Pointer(base)
	}
	if te.Array {
		length := -1
		if te.ArrayLen != nil {
			length = *te.ArrayLen
		}
		base = g.Types.Array(base, length)
	}
	return base
}

func (fg *funcGen) blockTerminated() bool {
	return fg.fn.CFG.Block(fg.cur).Terminator != cfg.TermNone
}

func (fg *funcGen) genBlock(block *ast.BlockStmt) {
	for _, s := range block.Stmts {
		if fg.blockTerminated() {
			return
		}
		fg.genStmt(s)
	}
}

func (fg *funcGen) genStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		fg.genLocalDecl(s.Decl)
	case *ast.ExprStmt:
		fg.genExpr(s.X)
	case *ast.IfStmt:
		fg.genIf(s)
	case *ast.WhileStmt:
		fg.genWhile(s)
	case *ast.ForStmt:
		fg.genFor(s)
	case *ast.MatchStmt:
		fg.genMatch(s)
	case *ast.ReturnStmt:
		fg.genReturn(s)
	case *ast.BreakStmt:
		if len(fg.breakTargets) > 0 {
			target := fg.breakTargets[len(fg.breakTargets)-1]
			fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(target)}, Loc: s.Loc()})
		}
	case *ast.ContinueStmt:
		if len(fg.continueTargets) > 0 {
			target := fg.continueTargets[len(fg.continueTargets)-1]
			fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(target)}, Loc: s.Loc()})
		}
	case *ast.BlockStmt:
		fg.genBlock(s)
	case *ast.AsmStmt:
		// Inline assembly is emitted verbatim by codegen6502, not lowered
		// to IL; it is tracked as a pass-through instruction carrying the
		// raw lines in Callee so later phases can find it by opcode.
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpBarrier, Callee: "asm"})
	}
}

func (fg *funcGen) genLocalDecl(decl *ast.VariableDecl) {
	t, _ := fg.g.Meta.TypeOf(decl)
	slot := fg.fn.NewRegister()
	fg.slots[decl.Name] = slot
	fg.slotTypes[decl.Name] = t
	var v il.Value
	if decl.Initializer != nil {
		v = fg.genExpr(decl.Initializer)
	} else {
		v = il.Const(0, t)
	}
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{v}, Loc: decl.Loc()})
}

func (fg *funcGen) genReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpReturnVoid, Loc: s.Loc()})
		return
	}
	v := fg.genExpr(s.Value)
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpReturn, Args: []il.Value{v}, Loc: s.Loc()})
}

func (fg *funcGen) genIf(s *ast.IfStmt) {
	cond := fg.genExpr(s.Cond)
	thenBlock := fg.fn.NewBlock("if.then")
	joinBlock := fg.fn.NewBlock("if.end")
	var elseBlock cfg.BlockID
	if s.Else != nil {
		elseBlock = fg.fn.NewBlock("if.else")
	} else {
		elseBlock = joinBlock
	}
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{cond, il.Label(thenBlock), il.Label(elseBlock)}, Loc: s.Loc()})

	fg.cur = thenBlock
	fg.genBlock(s.Then)
	if !fg.blockTerminated() {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(joinBlock)}})
	}

	if s.Else != nil {
		fg.cur = elseBlock
		switch e := s.Else.(type) {
		case *ast.BlockStmt:
			fg.genBlock(e)
		case *ast.IfStmt:
			fg.genIf(e)
		}
		if !fg.blockTerminated() {
			fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(joinBlock)}})
		}
	}
	fg.cur = joinBlock
}

func (fg *funcGen) genWhile(s *ast.WhileStmt) {
	header := fg.fn.NewBlock("while.cond")
	body := fg.fn.NewBlock("while.body")
	exit := fg.fn.NewBlock("while.end")
	fg.fn.LoopHeaders[header] = true
	fg.fn.LoopLatches[header] = true

	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(header)}})

	fg.cur = header
	cond := fg.genExpr(s.Cond)
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{cond, il.Label(body), il.Label(exit)}, Loc: s.Loc()})

	fg.breakTargets = append(fg.breakTargets, exit)
	fg.continueTargets = append(fg.continueTargets, header)
	fg.cur = body
	fg.genBlock(s.Body)
	if !fg.blockTerminated() {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(header)}})
	}
	fg.breakTargets = fg.breakTargets[:len(fg.breakTargets)-1]
	fg.continueTargets = fg.continueTargets[:len(fg.continueTargets)-1]

	fg.cur = exit
}

// genFor lowers `for i = start to end [step s] ... end for` to the
// equivalent while loop, per DESIGN.md's recorded Open Question decision:
// the AST keeps the original for-shape for diagnostics, but IL generation
// desugars it here rather than in the parser.
func (fg *funcGen) genFor(s *ast.ForStmt) {
	start := fg.genExpr(s.Start)
	endT, _ := fg.g.Meta.TypeOf(s.End)
	// §4.3: the induction variable is typed by the larger of its bounds.
	byteT, ok := fg.g.Types.BinaryResult(types.Arithmetic, start.Type, endT)
	if !ok {
		byteT = fg.g.Types.Byte()
	}
	slot := fg.fn.NewRegister()
	fg.slots[s.Var] = slot
	fg.slotTypes[s.Var] = byteT

	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, byteT), Args: []il.Value{start}, Loc: s.Loc()})

	header := fg.fn.NewBlock("for.cond")
	body := fg.fn.NewBlock("for.body")
	latch := fg.fn.NewBlock("for.latch")
	exit := fg.fn.NewBlock("for.end")
	fg.fn.LoopHeaders[header] = true
	fg.fn.LoopLatches[latch] = true

	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(header)}})

	fg.cur = header
	endVal := fg.genExpr(s.End)
	curReg := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(curReg, byteT), Args: []il.Value{il.Reg(slot, byteT)}})
	condReg := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpCmpLe, Dest: il.Reg(condReg, fg.g.Types.Bool()), Args: []il.Value{il.Reg(curReg, byteT), endVal}})
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{il.Reg(condReg, fg.g.Types.Bool()), il.Label(body), il.Label(exit)}, Loc: s.Loc()})

	fg.breakTargets = append(fg.breakTargets, exit)
	fg.continueTargets = append(fg.continueTargets, latch)
	fg.cur = body
	fg.genBlock(s.Body)
	if !fg.blockTerminated() {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(latch)}})
	}
	fg.breakTargets = fg.breakTargets[:len(fg.breakTargets)-1]
	fg.continueTargets = fg.continueTargets[:len(fg.continueTargets)-1]

	fg.cur = latch
	step := il.Const(1, byteT)
	if s.Step != nil {
		step = fg.genExpr(s.Step)
	}
	loadReg := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(loadReg, byteT), Args: []il.Value{il.Reg(slot, byteT)}})
	nextReg := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpAdd, Dest: il.Reg(nextReg, byteT), Args: []il.Value{il.Reg(loadReg, byteT), step}})
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, byteT), Args: []il.Value{il.Reg(nextReg, byteT)}})
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(header)}})

	fg.cur = exit
}

func (fg *funcGen) genMatch(s *ast.MatchStmt) {
	subject := fg.genExpr(s.Subject)
	exit := fg.fn.NewBlock("match.end")
	next := fg.cur
	for i, mc := range s.Cases {
		fg.cur = next
		if mc.Default || i == len(s.Cases)-1 && len(mc.Values) == 0 {
			fg.genBlock(mc.Body)
			if !fg.blockTerminated() {
				fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(exit)}})
			}
			continue
		}
		caseBody := fg.fn.NewBlock("match.case")
		fallthroughBlock := fg.fn.NewBlock("match.next")

		var cond il.Value
		boolT := fg.g.Types.Bool()
		for j, v := range mc.Values {
			val := fg.genExpr(v)
			cmp := fg.fn.NewRegister()
			fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpCmpEq, Dest: il.Reg(cmp, boolT), Args: []il.Value{subject, val}})
			if j == 0 {
				cond = il.Reg(cmp, boolT)
			} else {
				orReg := fg.fn.NewRegister()
				fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpOr, Dest: il.Reg(orReg, boolT), Args: []il.Value{cond, il.Reg(cmp, boolT)}})
				cond = il.Reg(orReg, boolT)
			}
		}
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{cond, il.Label(caseBody), il.Label(fallthroughBlock)}})

		fg.cur = caseBody
		fg.genBlock(mc.Body)
		if !fg.blockTerminated() {
			fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(exit)}})
		}
		next = fallthroughBlock
	}
	fg.cur = next
	if !fg.blockTerminated() {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(exit)}})
	}
	fg.cur = exit
}

// genExpr lowers e, returning the Value holding its result. Short-circuit
// && and || branch rather than evaluating both operands unconditionally,
// per spec.md §4.4.
func (fg *funcGen) genExpr(e ast.Expr) il.Value {
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		return fg.genLiteral(ex)
	case *ast.IdentifierExpr:
		return fg.genIdentifier(ex)
	case *ast.BinaryExpr:
		return fg.genBinary(ex)
	case *ast.UnaryExpr:
		return fg.genUnary(ex)
	case *ast.AssignExpr:
		return fg.genAssign(ex)
	case *ast.CallExpr:
		return fg.genCall(ex)
	case *ast.IndexExpr:
		return fg.genIndex(ex)
	case *ast.MemberExpr:
		return fg.genMember(ex)
	case *ast.TernaryExpr:
		return fg.genTernary(ex)
	default:
		t, _ := fg.g.Meta.TypeOf(e)
		return il.Const(0, t)
	}
}

func (fg *funcGen) genLiteral(ex *ast.LiteralExpr) il.Value {
	switch ex.LitKind {
	case ast.LitByte:
		return il.Const(ex.Int, fg.g.Types.Byte())
	case ast.LitWord:
		return il.Const(ex.Int, fg.g.Types.Word())
	case ast.LitBool:
		v := uint16(0)
		if ex.Bool {
			v = 1
		}
		return il.Const(v, fg.g.Types.Bool())
	default:
		t, _ := fg.g.Meta.TypeOf(ex)
		return il.Const(0, t)
	}
}

func (fg *funcGen) genIdentifier(ex *ast.IdentifierExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	if slot, ok := fg.slots[ex.Name]; ok {
		dst := fg.fn.NewRegister()
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(dst, t), Args: []il.Value{il.Reg(slot, fg.slotTypes[ex.Name])}, Loc: ex.Loc()})
		return il.Reg(dst, t)
	}
	qualifier := ex.Qualifier
	if qualifier == "" {
		qualifier = fg.fn.Module
	}
	dst := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(dst, t), Args: []il.Value{il.Global(qualifier + "." + ex.Name, t)}, Loc: ex.Loc()})
	return il.Reg(dst, t)
}

func (fg *funcGen) genBinary(ex *ast.BinaryExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	if ex.Op == ast.OpLogicalAnd || ex.Op == ast.OpLogicalOr {
		return fg.genShortCircuit(ex, t)
	}
	l := fg.genExpr(ex.Left)
	r := fg.genExpr(ex.Right)
	l = fg.applyCoercions(ex.Left, l)
	r = fg.applyCoercions(ex.Right, r)
	dst := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: binaryOpcode(ex.Op), Dest: il.Reg(dst, t), Args: []il.Value{l, r}, Loc: ex.Loc()})
	return il.Reg(dst, t)
}

func (fg *funcGen) applyCoercions(operand ast.Expr, v il.Value) il.Value {
	for _, c := range fg.g.Meta.Coercions(operand) {
		dst := fg.fn.NewRegister()
		var op il.Opcode
		var resultType types.ID
		switch c {
		case ast.CoerceZeroExtend:
			op, resultType = il.OpZeroExtend, fg.g.Types.Word()
		case ast.CoerceTruncate:
			op, resultType = il.OpTruncate, fg.g.Types.Byte()
		case ast.CoerceBoolToByte:
			op, resultType = il.OpBoolToByte, fg.g.Types.Byte()
		case ast.CoerceByteToBool:
			op, resultType = il.OpByteToBool, fg.g.Types.Bool()
		default:
			continue
		}
		fg.fn.Emit(fg.cur, il.Instruction{Op: op, Dest: il.Reg(dst, resultType), Args: []il.Value{v}})
		v = il.Reg(dst, resultType)
	}
	return v
}

func binaryOpcode(op ast.BinaryOp) il.Opcode {
	switch op {
	case ast.OpAdd:
		return il.OpAdd
	case ast.OpSub:
		return il.OpSub
	case ast.OpMul:
		return il.OpMul
	case ast.OpDiv:
		return il.OpDiv
	case ast.OpMod:
		return il.OpMod
	case ast.OpEq:
		return il.OpCmpEq
	case ast.OpNe:
		return il.OpCmpNe
	case ast.OpLt:
		return il.OpCmpLt
	case ast.OpLe:
		return il.OpCmpLe
	case ast.OpGt:
		return il.OpCmpGt
	case ast.OpGe:
		return il.OpCmpGe
	case ast.OpAnd:
		return il.OpAnd
	case ast.OpOr:
		return il.OpOr
	case ast.OpXor:
		return il.OpXor
	case ast.OpShl:
		return il.OpShl
	case ast.OpShr:
		return il.OpShr
	default:
		return il.OpAdd
	}
}

// genShortCircuit lowers && / || into branching control flow rather than
// eager evaluation of both operands, per spec.md §4.4.
func (fg *funcGen) genShortCircuit(ex *ast.BinaryExpr, t types.ID) il.Value {
	lhsBlock := fg.cur
	l := fg.genExpr(ex.Left)

	rhsBlock := fg.fn.NewBlock("sc.rhs")
	joinBlock := fg.fn.NewBlock("sc.end")
	slot := fg.fn.NewRegister()

	fg.fn.Emit(lhsBlock, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{l}})
	if ex.Op == ast.OpLogicalAnd {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{l, il.Label(rhsBlock), il.Label(joinBlock)}})
	} else {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{l, il.Label(joinBlock), il.Label(rhsBlock)}})
	}

	fg.cur = rhsBlock
	r := fg.genExpr(ex.Right)
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{r}})
	if !fg.blockTerminated() {
		fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(joinBlock)}})
	}

	fg.cur = joinBlock
	dst := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(dst, t), Args: []il.Value{il.Reg(slot, t)}})
	return il.Reg(dst, t)
}

func (fg *funcGen) genUnary(ex *ast.UnaryExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	if ex.Op == ast.OpAddressOf {
		dst := fg.fn.NewRegister()
		operand := fg.addressableValue(ex.Operand)
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpAddrOf, Dest: il.Reg(dst, t), Args: []il.Value{operand}, Loc: ex.Loc()})
		return il.Reg(dst, t)
	}
	v := fg.genExpr(ex.Operand)
	dst := fg.fn.NewRegister()
	op := il.OpNeg
	switch ex.Op {
	case ast.OpNot:
		op = il.OpNot
	case ast.OpBitNot:
		op = il.OpBitNot
	}
	fg.fn.Emit(fg.cur, il.Instruction{Op: op, Dest: il.Reg(dst, t), Args: []il.Value{v}, Loc: ex.Loc()})
	return il.Reg(dst, t)
}

// addressableValue returns the slot/global Value an lvalue expression
// refers to, without emitting a load, for use by OpAddrOf.
func (fg *funcGen) addressableValue(e ast.Expr) il.Value {
	switch ex := e.(type) {
	case *ast.IdentifierExpr:
		t, _ := fg.g.Meta.TypeOf(ex)
		if slot, ok := fg.slots[ex.Name]; ok {
			return il.Reg(slot, fg.slotTypes[ex.Name])
		}
		qualifier := ex.Qualifier
		if qualifier == "" {
			qualifier = fg.fn.Module
		}
		return il.Global(qualifier+"."+ex.Name, t)
	default:
		return fg.genExpr(e)
	}
}

func (fg *funcGen) genAssign(ex *ast.AssignExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	var value il.Value
	if ex.Op == ast.AssignPlain {
		value = fg.genExpr(ex.Value)
	} else {
		cur := fg.genExpr(ex.Target)
		rhs := fg.genExpr(ex.Value)
		dst := fg.fn.NewRegister()
		fg.fn.Emit(fg.cur, il.Instruction{Op: compoundOpcode(ex.Op), Dest: il.Reg(dst, t), Args: []il.Value{cur, rhs}, Loc: ex.Loc()})
		value = il.Reg(dst, t)
	}
	switch target := ex.Target.(type) {
	case *ast.IdentifierExpr:
		if slot, ok := fg.slots[target.Name]; ok {
			fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{value}, Loc: ex.Loc()})
		} else {
			qualifier := target.Qualifier
			if qualifier == "" {
				qualifier = fg.fn.Module
			}
			fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Args: []il.Value{il.Global(qualifier+"."+target.Name, t), value}, Loc: ex.Loc()})
		}
	case *ast.IndexExpr:
		arr := fg.genExpr(target.Array)
		idx := fg.genExpr(target.Index)
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStoreIndex, Args: []il.Value{arr, idx, value}, Loc: ex.Loc()})
	case *ast.MemberExpr:
		if id, ok := target.Object.(*ast.IdentifierExpr); ok {
			if base, offset, ok := fg.mappedField(id.Name, target.Field); ok {
				fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpMapStoreField, Args: []il.Value{base, il.Const(uint16(offset), fg.g.Types.Byte()), value}, Loc: ex.Loc()})
			} else {
				name := id.Name + "." + target.Field
				fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Args: []il.Value{il.Global(name, t), value}, Loc: ex.Loc()})
			}
		}
	}
	return value
}

func compoundOpcode(op ast.AssignOp) il.Opcode {
	switch op {
	case ast.AssignAdd:
		return il.OpAdd
	case ast.AssignSub:
		return il.OpSub
	case ast.AssignMul:
		return il.OpMul
	case ast.AssignDiv:
		return il.OpDiv
	case ast.AssignAnd:
		return il.OpAnd
	case ast.AssignOr:
		return il.OpOr
	case ast.AssignXor:
		return il.OpXor
	default:
		return il.OpAdd
	}
}

func (fg *funcGen) genCall(ex *ast.CallExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	id, isIdent := ex.Callee.(*ast.IdentifierExpr)
	if isIdent {
		if name, ok := fg.g.Meta.Get(ex.ID(), ast.MetaIntrinsic); ok {
			return fg.genIntrinsicCall(ex, name.(string), t)
		}
		args := make([]il.Value, 0, len(ex.Args))
		for _, a := range ex.Args {
			args = append(args, fg.genExpr(a))
		}
		qualifier := id.Qualifier
		if qualifier == "" {
			qualifier = fg.fn.Module
		}
		callee := qualifier + "." + id.Name
		if t == fg.g.Types.Void() {
			fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpCall, Callee: callee, Args: args, Loc: ex.Loc()})
			return il.Value{}
		}
		dst := fg.fn.NewRegister()
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpCall, Dest: il.Reg(dst, t), Callee: callee, Args: args, Loc: ex.Loc()})
		return il.Reg(dst, t)
	}
	// Calling through a callback-typed value or any other non-identifier
	// expression requires an indirect-call representation the 6502 backend
	// does not implement.
	fg.g.Diags.Errorf(diag.IndirectCallNotSupported, ex.Loc(), "calling through a non-identifier expression is not supported")
	return il.Value{}
}

func (fg *funcGen) genIntrinsicCall(ex *ast.CallExpr, name string, t types.ID) il.Value {
	sig, _ := intrinsics.Lookup(name)
	args := make([]il.Value, 0, len(ex.Args))
	for _, a := range ex.Args {
		args = append(args, fg.genExpr(a))
	}
	instr := il.Instruction{Op: il.OpIntrinsicCall, Callee: name, Args: args, Loc: ex.Loc()}
	if sig.IsSequencePoint {
		instr.RasterCritical = true
	}
	if sig.Result == types.Void {
		fg.fn.Emit(fg.cur, instr)
		return il.Value{}
	}
	dst := fg.fn.NewRegister()
	instr.Dest = il.Reg(dst, t)
	fg.fn.Emit(fg.cur, instr)
	return il.Reg(dst, t)
}

func (fg *funcGen) genIndex(ex *ast.IndexExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	arr := fg.genExpr(ex.Array)
	idx := fg.genExpr(ex.Index)
	dst := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoadIndex, Dest: il.Reg(dst, t), Args: []il.Value{arr, idx}, Loc: ex.Loc()})
	return il.Reg(dst, t)
}

func (fg *funcGen) genMember(ex *ast.MemberExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	if id, ok := ex.Object.(*ast.IdentifierExpr); ok {
		name := id.Name + "." + ex.Field
		dst := fg.fn.NewRegister()
		if base, offset, ok := fg.mappedField(id.Name, ex.Field); ok {
			fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpMapLoadField, Dest: il.Reg(dst, t), Args: []il.Value{base, il.Const(uint16(offset), fg.g.Types.Byte())}, Loc: ex.Loc()})
			return il.Reg(dst, t)
		}
		fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(dst, t), Args: []il.Value{il.Global(name, t)}, Loc: ex.Loc()})
		return il.Reg(dst, t)
	}
	return il.Const(0, t)
}

// mappedField reports whether objName.field names a field of an @map
// declaration visible in the current module, returning the map's base
// Global value and the field's byte offset. Enum-member and other dotted
// references (which are ordinary globals, not memory-mapped fields) report
// ok=false so callers fall back to the generic load/store path.
func (fg *funcGen) mappedField(objName, field string) (il.Value, int, bool) {
	table, ok := fg.g.Globals.Module(fg.fn.Module)
	if !ok {
		return il.Value{}, 0, false
	}
	sym, ok := table.ModuleScope.Lookup(objName + "." + field)
	if !ok || sym.SKind != symbols.KindMappedVariable {
		return il.Value{}, 0, false
	}
	base := il.Global(fg.fn.Module+"."+objName, fg.g.Types.Word())
	return base, sym.MappedOffset, true
}

func (fg *funcGen) genTernary(ex *ast.TernaryExpr) il.Value {
	t, _ := fg.g.Meta.TypeOf(ex)
	cond := fg.genExpr(ex.Cond)
	thenBlock := fg.fn.NewBlock("tern.then")
	elseBlock := fg.fn.NewBlock("tern.else")
	joinBlock := fg.fn.NewBlock("tern.end")
	slot := fg.fn.NewRegister()

	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpBranch, Args: []il.Value{cond, il.Label(thenBlock), il.Label(elseBlock)}})

	fg.cur = thenBlock
	thenV := fg.genExpr(ex.Then)
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{thenV}})
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(joinBlock)}})

	fg.cur = elseBlock
	elseV := fg.genExpr(ex.Else)
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, t), Args: []il.Value{elseV}})
	fg.fn.Terminate(fg.cur, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(joinBlock)}})

	fg.cur = joinBlock
	dst := fg.fn.NewRegister()
	fg.fn.Emit(fg.cur, il.Instruction{Op: il.OpLoad, Dest: il.Reg(dst, t), Args: []il.Value{il.Reg(slot, t)}})
	return il.Reg(dst, t)
}
