// Package ast implements the polymorphic expression and statement tree described in spec.md
// §4 and §9: a closed set of tagged variant structs implementing uniform Expr/Stmt interfaces,
// in place of a class hierarchy with downcasts. Grounded on the teacher's single ir.Node type
// (src/ir/nodetype.go) for field naming (Token/line/pos bookkeeping, Render/Print-style debug
// dumping) but split into one struct per node kind per spec.md §9's explicit redesign.
package ast

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"vslac/src/diag"
	"vslac/src/lower"
	"vslac/src/token"
	"vslac/src/types"
)

// Expr is the capability set every expression node variant implements. Preprocess registers
// forward-referenceable signatures (spec.md §4.3's two-phase lowering); most expression kinds
// have nothing to contribute there and implement it as a no-op.
type Expr interface {
	Tok() token.Token
	Typ() types.Type
	Render(depth int) string
	Preprocess(c *lower.Context, d *diag.Bag)
	Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error)
	IsLvalue() bool
	IsSafe() bool
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// EvalKind tags the closed sum type EvalValue holds, per spec.md §4.4 "compile-time evaluation
// is a separate, closed result type from runtime lowering".
type EvalKind int

const (
	EvalSigned EvalKind = iota
	EvalUnsigned
	EvalDouble
)

// EvalValue is the result of a compile-time constant evaluation.
type EvalValue struct {
	Kind     EvalKind
	Signed   int64
	Unsigned uint64
	Double   float64
}

func evalSigned(v int64) EvalValue   { return EvalValue{Kind: EvalSigned, Signed: v} }
func evalUnsigned(v uint64) EvalValue { return EvalValue{Kind: EvalUnsigned, Unsigned: v} }
func evalDouble(v float64) EvalValue  { return EvalValue{Kind: EvalDouble, Double: v} }

func (e EvalValue) AsDouble() float64 {
	switch e.Kind {
	case EvalSigned:
		return float64(e.Signed)
	case EvalUnsigned:
		return float64(e.Unsigned)
	default:
		return e.Double
	}
}

// Evaluator is implemented by the expression node kinds spec.md §4.4 allows in compile-time
// constant evaluation. It is kept separate from Expr since most node kinds (identifiers, calls,
// assignments, ...) have no compile-time value and simply don't implement it.
type Evaluator interface {
	Evaluate() (EvalValue, bool)
}

// evaluate attempts compile-time evaluation of e, reporting false for any node kind that isn't
// an Evaluator at all, in addition to whatever false that node kind's own Evaluate returns.
func evaluate(e Expr) (EvalValue, bool) {
	ev, ok := e.(Evaluator)
	if !ok {
		return EvalValue{}, false
	}
	return ev.Evaluate()
}

// ---- IntegerLiteral ----

type IntegerLiteral struct {
	Token      token.Token
	Value      int64
	Unsigned   bool
	Type       types.SimpleType
}

func (n *IntegerLiteral) Tok() token.Token   { return n.Token }
func (n *IntegerLiteral) Typ() types.Type    { return n.Type }
func (n *IntegerLiteral) IsLvalue() bool     { return false }
func (n *IntegerLiteral) IsSafe() bool       { return true }
func (n *IntegerLiteral) Render(depth int) string {
	return fmt.Sprintf("%sIntegerLiteral(%d)", indent(depth), n.Value)
}
func (n *IntegerLiteral) Preprocess(c *lower.Context, d *diag.Bag) {}

func (n *IntegerLiteral) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	return c.ConstInt(n.Type, n.Value)
}

// Evaluate implements spec.md §4.4's compile-time evaluation for literal leaves.
func (n *IntegerLiteral) Evaluate() (EvalValue, bool) {
	if n.Unsigned {
		return evalUnsigned(uint64(n.Value)), true
	}
	return evalSigned(n.Value), true
}

// ---- CharacterLiteral ----

type CharacterLiteral struct {
	Token token.Token
	Value byte
}

func (n *CharacterLiteral) Tok() token.Token { return n.Token }
func (n *CharacterLiteral) Typ() types.Type  { return types.SimpleType{Identifier: types.Char} }
func (n *CharacterLiteral) IsLvalue() bool   { return false }
func (n *CharacterLiteral) IsSafe() bool     { return true }
func (n *CharacterLiteral) Render(depth int) string {
	return fmt.Sprintf("%sCharacterLiteral(%q)", indent(depth), n.Value)
}
func (n *CharacterLiteral) Preprocess(c *lower.Context, d *diag.Bag) {}

func (n *CharacterLiteral) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	return c.ConstInt(types.SimpleType{Identifier: types.Char}, int64(n.Value))
}

func (n *CharacterLiteral) Evaluate() (EvalValue, bool) {
	return evalSigned(int64(n.Value)), true
}

// ---- StringLiteral ----

type StringLiteral struct {
	Token token.Token
	Value string
}

func (n *StringLiteral) Tok() token.Token { return n.Token }
func (n *StringLiteral) Typ() types.Type {
	return types.Pointer{Pointee: types.SimpleType{Identifier: types.Char, IsUnsigned: true}}
}
func (n *StringLiteral) IsLvalue() bool { return false }

// IsSafe is false: a StringLiteral's type is a Pointer (spec.md §3), so producing or holding
// one requires an enclosing unsafe region even though the literal itself never dereferences.
func (n *StringLiteral) IsSafe() bool { return false }

func (n *StringLiteral) Render(depth int) string {
	return fmt.Sprintf("%sStringLiteral(%q)", indent(depth), n.Value)
}
func (n *StringLiteral) Preprocess(c *lower.Context, d *diag.Bag) {}

func (n *StringLiteral) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	return c.GlobalString(n.Value), nil
}

// ---- Identifier ----

type Identifier struct {
	Token token.Token
	Name  string
	Type  types.Type
}

func (n *Identifier) Tok() token.Token { return n.Token }
func (n *Identifier) Typ() types.Type  { return n.Type }
func (n *Identifier) IsLvalue() bool   { return true }
func (n *Identifier) IsSafe() bool {
	if n.Type == nil {
		return true
	}
	return n.Type.IsSafe()
}
func (n *Identifier) Render(depth int) string {
	return fmt.Sprintf("%sIdentifier(%s)", indent(depth), n.Name)
}

func (n *Identifier) Preprocess(c *lower.Context, d *diag.Bag) {}

func (n *Identifier) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	sym, ok := c.Lookup(n.Name)
	if !ok {
		d.Error(n.Token, "Unbound symbol %q", n.Name)
		return llvm.Value{}, errors.Errorf("unbound symbol %q", n.Name)
	}
	n.Type = sym.Typ
	return sym.Addr, nil
}

// LoweredLoad produces the loaded value at this identifier's storage address, used by callers
// that need the value rather than the address (everywhere except assignment left-hand sides).
func (n *Identifier) LoweredLoad(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	addr, err := n.Lower(c, d)
	if err != nil {
		return llvm.Value{}, err
	}
	elemType, err := n.Type.Lower(c.LLVM)
	if err != nil {
		return llvm.Value{}, err
	}
	return c.Builder.CreateLoad(elemType, addr, ""), nil
}

// ---- UnaryOperation ----

type UnaryOperation struct {
	Token    token.Token
	Operator token.Kind // PLUS, MINUS, TILDE, NOT, AMP, STAR
	Operand  Expr
	Type     types.Type
}

func (n *UnaryOperation) Tok() token.Token { return n.Token }
func (n *UnaryOperation) Typ() types.Type  { return n.Type }
func (n *UnaryOperation) IsLvalue() bool   { return n.Operator == token.STAR }
func (n *UnaryOperation) IsSafe() bool {
	if n.Operator == token.STAR || n.Operator == token.AMP {
		return false
	}
	return n.Operand.IsSafe()
}
func (n *UnaryOperation) Render(depth int) string {
	return fmt.Sprintf("%sUnaryOperation(%s)\n%s", indent(depth), n.Operator, n.Operand.Render(depth+1))
}

func (n *UnaryOperation) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Operand.Preprocess(c, d)
}

func (n *UnaryOperation) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	if (n.Operator == token.STAR || n.Operator == token.AMP) && !c.InUnsafeBlock {
		d.Error(n.Token, "operator %q used outside unsafe block", n.Operator)
		return llvm.Value{}, errors.Errorf("operator %q requires unsafe block", n.Operator)
	}

	switch n.Operator {
	case token.AMP:
		if !n.Operand.IsLvalue() {
			d.Error(n.Token, "Expected lvalue for operand of reference operator")
			return llvm.Value{}, errors.New("expected lvalue for operand of reference operator")
		}
		addr, err := n.Operand.Lower(c, d)
		if err != nil {
			return llvm.Value{}, err
		}
		n.Type = types.Pointer{Pointee: n.Operand.Typ()}
		return addr, nil
	case token.STAR:
		addr, err := loadValue(c, d, n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		ptr, ok := n.Operand.Typ().(types.Pointer)
		if !ok {
			return llvm.Value{}, errors.New("* applied to non-pointer type")
		}
		elemType, err := ptr.Pointee.Lower(c.LLVM)
		if err != nil {
			return llvm.Value{}, err
		}
		n.Type = ptr.Pointee
		return c.Builder.CreateLoad(elemType, addr, ""), nil
	}

	v, err := loadValue(c, d, n.Operand)
	if err != nil {
		return llvm.Value{}, err
	}
	opType, ok := n.Operand.Typ().(types.SimpleType)
	if !ok {
		return llvm.Value{}, errors.Errorf("unary operator %q applied to non-primitive type", n.Operator)
	}
	switch n.Operator {
	case token.PLUS:
		// Preserved quirk (spec.md §4.4): unary plus lowers as a multiplication by one
		// rather than as a no-op, mirroring the source's Any-based arithmetic.
		n.Type = opType
		one, err := oneOf(c, opType)
		if err != nil {
			return llvm.Value{}, err
		}
		if opType.Identifier.IsFloat() {
			return c.Builder.CreateFMul(v, one, ""), nil
		}
		return c.Builder.CreateMul(v, one, ""), nil
	case token.MINUS:
		// Preserved quirk (spec.md §4.4): unary minus lowers as a multiplication by
		// negative one.
		n.Type = opType
		negOne, err := negOneOf(c, opType)
		if err != nil {
			return llvm.Value{}, err
		}
		if opType.Identifier.IsFloat() {
			return c.Builder.CreateFMul(v, negOne, ""), nil
		}
		return c.Builder.CreateMul(v, negOne, ""), nil
	case token.TILDE:
		n.Type = opType
		return c.Builder.CreateNot(v, ""), nil
	case token.NOT:
		zero, err := c.ConstInt(types.SimpleType{Identifier: types.Int}, 0)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.Builder.CreateICmp(llvm.IntEQ, v, zero, ""), nil
	default:
		return llvm.Value{}, errors.Errorf("unsupported unary operator %q", n.Operator)
	}
}

// Evaluate implements spec.md §4.4's compile-time evaluation for unary plus and minus: they
// fold as 0 ± operand. This is a separate, simpler rule from Lower's runtime quirk (multiplying
// by ±1); every other unary operator has no compile-time result.
func (n *UnaryOperation) Evaluate() (EvalValue, bool) {
	if n.Operator != token.PLUS && n.Operator != token.MINUS {
		return EvalValue{}, false
	}
	v, ok := evaluate(n.Operand)
	if !ok {
		return EvalValue{}, false
	}
	switch v.Kind {
	case EvalDouble:
		if n.Operator == token.MINUS {
			return evalDouble(0 - v.Double), true
		}
		return evalDouble(0 + v.Double), true
	case EvalUnsigned:
		if n.Operator == token.MINUS && v.Unsigned != 0 {
			return EvalValue{}, false // unsigned negation of a nonzero value has no result
		}
		return evalUnsigned(v.Unsigned), true
	default: // EvalSigned
		if n.Operator == token.MINUS {
			if v.Signed == math.MinInt64 {
				return EvalValue{}, false
			}
			return evalSigned(0 - v.Signed), true
		}
		return evalSigned(0 + v.Signed), true
	}
}

func oneOf(c *lower.Context, t types.SimpleType) (llvm.Value, error) {
	if t.Identifier.IsFloat() {
		return c.ConstFloat(t, 1)
	}
	return c.ConstInt(t, 1)
}

func negOneOf(c *lower.Context, t types.SimpleType) (llvm.Value, error) {
	if t.Identifier.IsFloat() {
		return c.ConstFloat(t, -1)
	}
	return c.ConstInt(t, -1)
}

// loadValue lowers e and, if e is an lvalue, loads the value stored at the resulting address.
// Most expression kinds already yield a value from Lower, the `*` unary included (its Lower
// emits the load itself); only Identifier produces an address that must be dereferenced before
// use in an rvalue context, directly or wrapped in an UnsafeExpression.
func loadValue(c *lower.Context, d *diag.Bag, e Expr) (llvm.Value, error) {
	if id, ok := e.(*Identifier); ok {
		return id.LoweredLoad(c, d)
	}
	if u, ok := e.(*UnsafeExpression); ok {
		wasAlready, restore := c.EnterUnsafe()
		defer restore()
		if wasAlready {
			d.Warn(u.Token, "Unnecessary unsafe expression")
		}
		return loadValue(c, d, u.Inner)
	}
	return e.Lower(c, d)
}

// ---- BinaryOperation ----

type BinaryOperation struct {
	Token    token.Token
	Operator token.Kind
	Left     Expr
	Right    Expr
	Type     types.Type
}

func (n *BinaryOperation) Tok() token.Token { return n.Token }
func (n *BinaryOperation) Typ() types.Type  { return n.Type }
func (n *BinaryOperation) IsLvalue() bool   { return false }
func (n *BinaryOperation) IsSafe() bool     { return n.Left.IsSafe() && n.Right.IsSafe() }
func (n *BinaryOperation) Render(depth int) string {
	return fmt.Sprintf("%sBinaryOperation(%s)\n%s\n%s", indent(depth), n.Operator,
		n.Left.Render(depth+1), n.Right.Render(depth+1))
}

func (n *BinaryOperation) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Left.Preprocess(c, d)
	n.Right.Preprocess(c, d)
}

func (n *BinaryOperation) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	lv, err := loadValue(c, d, n.Left)
	if err != nil {
		return llvm.Value{}, err
	}
	rv, err := loadValue(c, d, n.Right)
	if err != nil {
		return llvm.Value{}, err
	}

	result := types.Promote(n.Operator, n.Left.Typ(), n.Right.Typ())
	if result == nil {
		d.Error(n.Token, "no common type for operator %q operands", n.Operator)
		return llvm.Value{}, errors.Errorf("operands not promotable for %q", n.Operator)
	}
	n.Type = result

	lv, err = c.Coerce(lv, n.Left.Typ(), result)
	if err != nil {
		return llvm.Value{}, err
	}
	rv, err = c.Coerce(rv, n.Right.Typ(), result)
	if err != nil {
		return llvm.Value{}, err
	}

	st := result.(types.SimpleType)
	isFloat := st.Identifier.IsFloat()

	switch n.Operator {
	case token.PLUS:
		if isFloat {
			return c.Builder.CreateFAdd(lv, rv, ""), nil
		}
		return c.Builder.CreateAdd(lv, rv, ""), nil
	case token.MINUS:
		if isFloat {
			return c.Builder.CreateFSub(lv, rv, ""), nil
		}
		return c.Builder.CreateSub(lv, rv, ""), nil
	case token.STAR:
		if isFloat {
			return c.Builder.CreateFMul(lv, rv, ""), nil
		}
		return c.Builder.CreateMul(lv, rv, ""), nil
	case token.SLASH:
		if isFloat {
			return c.Builder.CreateFDiv(lv, rv, ""), nil
		}
		// Preserved quirk (spec.md §4.4, §9): division always emits signed division,
		// regardless of operand signedness. "Acknowledged limitation... preserved as-is."
		return c.Builder.CreateSDiv(lv, rv, ""), nil
	case token.PERCENT:
		if st.IsUnsigned {
			return c.Builder.CreateURem(lv, rv, ""), nil
		}
		return c.Builder.CreateSRem(lv, rv, ""), nil
	case token.AMP:
		return c.Builder.CreateAnd(lv, rv, ""), nil
	case token.PIPE:
		return c.Builder.CreateOr(lv, rv, ""), nil
	case token.CARET:
		return c.Builder.CreateXor(lv, rv, ""), nil
	case token.SHL:
		return c.Builder.CreateShl(lv, rv, ""), nil
	case token.SHR:
		if st.IsUnsigned {
			return c.Builder.CreateLShr(lv, rv, ""), nil
		}
		return c.Builder.CreateAShr(lv, rv, ""), nil
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:
		n.Type = types.SimpleType{Identifier: types.Int}
		intLL, err := n.Type.Lower(c.LLVM)
		if err != nil {
			return llvm.Value{}, err
		}
		var cmp llvm.Value
		if isFloat {
			cmp = c.Builder.CreateFCmp(floatPred(n.Operator), lv, rv, "")
		} else {
			cmp = c.Builder.CreateICmp(intPred(n.Operator, st.IsUnsigned), lv, rv, "")
		}
		// The 1-bit comparison result is widened so the value matches the int type recorded above.
		return c.Builder.CreateZExt(cmp, intLL, ""), nil
	case token.AND:
		return c.Builder.CreateAnd(lv, rv, ""), nil
	case token.OR:
		return c.Builder.CreateOr(lv, rv, ""), nil
	default:
		return llvm.Value{}, errors.Errorf("unsupported binary operator %q", n.Operator)
	}
}

// Evaluate implements spec.md §4.4's compile-time evaluation for the four arithmetic operators.
// Both operands must evaluate to the same EvalKind; the result fails (ok=false) on a kind
// mismatch, on division by zero, or on signed/unsigned overflow, rather than silently wrapping.
func (n *BinaryOperation) Evaluate() (EvalValue, bool) {
	switch n.Operator {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH:
	default:
		return EvalValue{}, false
	}

	l, ok := evaluate(n.Left)
	if !ok {
		return EvalValue{}, false
	}
	r, ok := evaluate(n.Right)
	if !ok {
		return EvalValue{}, false
	}
	if l.Kind != r.Kind {
		return EvalValue{}, false
	}

	switch l.Kind {
	case EvalDouble:
		switch n.Operator {
		case token.PLUS:
			return evalDouble(l.Double + r.Double), true
		case token.MINUS:
			return evalDouble(l.Double - r.Double), true
		case token.STAR:
			return evalDouble(l.Double * r.Double), true
		default: // SLASH
			if r.Double == 0 {
				return EvalValue{}, false
			}
			return evalDouble(l.Double / r.Double), true
		}
	case EvalUnsigned:
		a, b := l.Unsigned, r.Unsigned
		switch n.Operator {
		case token.PLUS:
			if addOverflowsUnsigned(a, b) {
				return EvalValue{}, false
			}
			return evalUnsigned(a + b), true
		case token.MINUS:
			if b > a {
				return EvalValue{}, false
			}
			return evalUnsigned(a - b), true
		case token.STAR:
			if mulOverflowsUnsigned(a, b) {
				return EvalValue{}, false
			}
			return evalUnsigned(a * b), true
		default: // SLASH
			if b == 0 {
				return EvalValue{}, false
			}
			return evalUnsigned(a / b), true
		}
	default: // EvalSigned
		a, b := l.Signed, r.Signed
		switch n.Operator {
		case token.PLUS:
			if addOverflowsSigned(a, b) {
				return EvalValue{}, false
			}
			return evalSigned(a + b), true
		case token.MINUS:
			if subOverflowsSigned(a, b) {
				return EvalValue{}, false
			}
			return evalSigned(a - b), true
		case token.STAR:
			if mulOverflowsSigned(a, b) {
				return EvalValue{}, false
			}
			return evalSigned(a * b), true
		default: // SLASH
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return EvalValue{}, false
			}
			return evalSigned(a / b), true
		}
	}
}

func addOverflowsSigned(a, b int64) bool {
	s := a + b
	return ((a ^ s) & (b ^ s)) < 0
}

func subOverflowsSigned(a, b int64) bool {
	s := a - b
	return ((a ^ b) & (a ^ s)) < 0
}

func mulOverflowsSigned(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	s := a * b
	return s/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64)
}

func addOverflowsUnsigned(a, b uint64) bool {
	return a+b < a
}

func mulOverflowsUnsigned(a, b uint64) bool {
	if a == 0 {
		return false
	}
	s := a * b
	return s/a != b
}

func intPred(op token.Kind, unsigned bool) llvm.IntPredicate {
	switch op {
	case token.EQ:
		return llvm.IntEQ
	case token.NEQ:
		return llvm.IntNE
	case token.LT:
		if unsigned {
			return llvm.IntULT
		}
		return llvm.IntSLT
	case token.GT:
		if unsigned {
			return llvm.IntUGT
		}
		return llvm.IntSGT
	case token.LE:
		if unsigned {
			return llvm.IntULE
		}
		return llvm.IntSLE
	default: // GE
		if unsigned {
			return llvm.IntUGE
		}
		return llvm.IntSGE
	}
}

func floatPred(op token.Kind) llvm.FloatPredicate {
	switch op {
	case token.EQ:
		return llvm.FloatOEQ
	case token.NEQ:
		return llvm.FloatONE
	case token.LT:
		return llvm.FloatOLT
	case token.GT:
		return llvm.FloatOGT
	case token.LE:
		return llvm.FloatOLE
	default: // GE
		return llvm.FloatOGE
	}
}

// ---- Assignment ----

type Assignment struct {
	Token    token.Token
	Operator token.Kind // ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN
	Target   Expr
	Value    Expr
	Type     types.Type
}

func (n *Assignment) Tok() token.Token { return n.Token }
func (n *Assignment) Typ() types.Type  { return n.Type }
func (n *Assignment) IsLvalue() bool   { return false }
func (n *Assignment) IsSafe() bool     { return n.Target.IsSafe() && n.Value.IsSafe() }
func (n *Assignment) Render(depth int) string {
	return fmt.Sprintf("%sAssignment(%s)\n%s\n%s", indent(depth), n.Operator,
		n.Target.Render(depth+1), n.Value.Render(depth+1))
}

func (n *Assignment) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Target.Preprocess(c, d)
	n.Value.Preprocess(c, d)
}

func (n *Assignment) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	if !n.Target.IsLvalue() {
		d.Error(n.Token, "left-hand side of assignment is not an lvalue")
		return llvm.Value{}, errors.New("assignment target is not an lvalue")
	}
	if id, ok := n.Target.(*Identifier); ok {
		if sym, found := c.Lookup(id.Name); found && sym.IsConst {
			d.Error(n.Token, "cannot assign to const-qualified lvalue")
			return llvm.Value{}, errors.New("cannot assign to const-qualified lvalue")
		}
	}
	addr, err := n.Target.Lower(c, d)
	if err != nil {
		return llvm.Value{}, err
	}
	n.Type = n.Target.Typ()

	rv, err := loadValue(c, d, n.Value)
	if err != nil {
		return llvm.Value{}, err
	}
	rv, err = c.Coerce(rv, n.Value.Typ(), n.Type)
	if err != nil {
		return llvm.Value{}, err
	}

	if n.Operator != token.ASSIGN {
		elemType, err := n.Type.Lower(c.LLVM)
		if err != nil {
			return llvm.Value{}, err
		}
		cur := c.Builder.CreateLoad(elemType, addr, "")
		st, _ := n.Type.(types.SimpleType)
		isFloat := st.Identifier.IsFloat()
		switch n.Operator {
		case token.PLUS_ASSIGN:
			if isFloat {
				rv = c.Builder.CreateFAdd(cur, rv, "")
			} else {
				rv = c.Builder.CreateAdd(cur, rv, "")
			}
		case token.MINUS_ASSIGN:
			if isFloat {
				rv = c.Builder.CreateFSub(cur, rv, "")
			} else {
				rv = c.Builder.CreateSub(cur, rv, "")
			}
		case token.STAR_ASSIGN:
			if isFloat {
				rv = c.Builder.CreateFMul(cur, rv, "")
			} else {
				rv = c.Builder.CreateMul(cur, rv, "")
			}
		case token.SLASH_ASSIGN:
			if isFloat {
				rv = c.Builder.CreateFDiv(cur, rv, "")
			} else {
				rv = c.Builder.CreateSDiv(cur, rv, "")
			}
		}
	}

	c.Builder.CreateStore(rv, addr)
	return rv, nil
}

// ---- FunctionCall ----

type FunctionCall struct {
	Token     token.Token
	Callee    string
	Arguments []Expr
	Type      types.Type
}

func (n *FunctionCall) Tok() token.Token { return n.Token }
func (n *FunctionCall) Typ() types.Type  { return n.Type }
func (n *FunctionCall) IsLvalue() bool   { return false }
func (n *FunctionCall) IsSafe() bool {
	if n.Type != nil && !n.Type.IsSafe() {
		return false
	}
	for _, a := range n.Arguments {
		if !a.IsSafe() {
			return false
		}
	}
	return true
}
func (n *FunctionCall) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sFunctionCall(%s)", indent(depth), n.Callee)
	for _, a := range n.Arguments {
		sb.WriteRune('\n')
		sb.WriteString(a.Render(depth + 1))
	}
	return sb.String()
}

func (n *FunctionCall) Preprocess(c *lower.Context, d *diag.Bag) {
	for _, a := range n.Arguments {
		a.Preprocess(c, d)
	}
}

func (n *FunctionCall) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	sym, ok := c.Lookup(n.Callee)
	if !ok || !sym.IsFunction {
		d.Error(n.Token, "Expected callable function expression")
		return llvm.Value{}, errors.New("expected callable function expression")
	}
	n.Type = sym.Typ

	args := make([]llvm.Value, 0, len(n.Arguments))
	for i, a := range n.Arguments {
		av, err := loadValue(c, d, a)
		if err != nil {
			return llvm.Value{}, err
		}
		if i < len(sym.Params) {
			av, err = c.Coerce(av, a.Typ(), sym.Params[i])
			if err != nil {
				return llvm.Value{}, err
			}
		}
		args = append(args, av)
	}

	fnType, err := callFuncType(c, sym)
	if err != nil {
		return llvm.Value{}, err
	}
	return c.Builder.CreateCall(fnType, sym.Addr, args, ""), nil
}

func callFuncType(c *lower.Context, sym *lower.Symbol) (llvm.Type, error) {
	ret, err := sym.Typ.Lower(c.LLVM)
	if err != nil {
		return llvm.Type{}, err
	}
	params := make([]llvm.Type, 0, len(sym.Params))
	for _, p := range sym.Params {
		pt, err := p.Lower(c.LLVM)
		if err != nil {
			return llvm.Type{}, err
		}
		params = append(params, pt)
	}
	return llvm.FunctionType(ret, params, false), nil
}

// ---- ArrayInitList ----

// ArrayInitList is the `{ ... }` initializer syntax of spec.md §4.6, valid only where an
// array-typed place is being initialized; elsewhere it is an ArrayInitOutsidePlace error.
type ArrayInitList struct {
	Token    token.Token
	Elements []Expr
	Type     types.Type
}

func (n *ArrayInitList) Tok() token.Token { return n.Token }
func (n *ArrayInitList) Typ() types.Type  { return n.Type }
func (n *ArrayInitList) IsLvalue() bool   { return false }
func (n *ArrayInitList) IsSafe() bool {
	for _, e := range n.Elements {
		if !e.IsSafe() {
			return false
		}
	}
	return true
}
func (n *ArrayInitList) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sArrayInitList", indent(depth))
	for _, e := range n.Elements {
		sb.WriteRune('\n')
		sb.WriteString(e.Render(depth + 1))
	}
	return sb.String()
}

func (n *ArrayInitList) Preprocess(c *lower.Context, d *diag.Bag) {
	for _, e := range n.Elements {
		e.Preprocess(c, d)
	}
}

// Lower on a bare ArrayInitList is only reached when it appears outside a declaration
// initializer place; spec.md §7's ArrayInitOutsidePlace. LowerInto is used from the place it
// is legal (VariableDeclaration's initializer).
func (n *ArrayInitList) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	d.Error(n.Token, "Expected expression")
	return llvm.Value{}, errors.New("expected expression")
}

// LowerInto recursively stores n's elements into addr (of array type arrType), following the
// two-index GEP pattern spec.md §4.6 describes: a 0 index to step through the pointer, then the
// element index. Nested ArrayInitLists recurse depth-first in column-major element order.
func (n *ArrayInitList) LowerInto(c *lower.Context, d *diag.Bag, addr llvm.Value, arrType types.Array) error {
	elemLL, err := arrType.Element.Lower(c.LLVM)
	if err != nil {
		return err
	}
	arrLL, err := arrType.Lower(c.LLVM)
	if err != nil {
		return err
	}

	for i, elem := range n.Elements {
		if i >= arrType.Length {
			break
		}
		idx := []llvm.Value{
			llvm.ConstInt(c.LLVM.Int32Type(), 0, false),
			llvm.ConstInt(c.LLVM.Int32Type(), uint64(i), false),
		}
		gep := c.Builder.CreateInBoundsGEP(arrLL, addr, idx, "")

		if nested, ok := elem.(*ArrayInitList); ok {
			nestedArr, ok := arrType.Element.(types.Array)
			if !ok {
				return errors.New("nested array initializer against non-array element type")
			}
			if err := nested.LowerInto(c, d, gep, nestedArr); err != nil {
				return err
			}
			continue
		}

		v, err := loadValue(c, d, elem)
		if err != nil {
			return err
		}
		v, err = c.Coerce(v, elem.Typ(), arrType.Element)
		if err != nil {
			return err
		}
		_ = elemLL
		c.Builder.CreateStore(v, gep)
	}
	return nil
}

// ---- UnsafeExpression ----

// UnsafeExpression wraps an expression evaluated with InUnsafeBlock forced true, per spec.md
// §4.2's unsafe-block scope guard, usable in contexts where only an expression (not a full
// statement) follows `unsafe`.
type UnsafeExpression struct {
	Token token.Token
	Inner Expr
}

func (n *UnsafeExpression) Tok() token.Token { return n.Token }
func (n *UnsafeExpression) Typ() types.Type  { return n.Inner.Typ() }
func (n *UnsafeExpression) IsLvalue() bool   { return n.Inner.IsLvalue() }
func (n *UnsafeExpression) IsSafe() bool     { return false }
func (n *UnsafeExpression) Render(depth int) string {
	return fmt.Sprintf("%sUnsafeExpression\n%s", indent(depth), n.Inner.Render(depth+1))
}

func (n *UnsafeExpression) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Inner.Preprocess(c, d)
}

func (n *UnsafeExpression) Lower(c *lower.Context, d *diag.Bag) (llvm.Value, error) {
	wasAlready, restore := c.EnterUnsafe()
	defer restore()
	if wasAlready {
		d.Warn(n.Token, "Unnecessary unsafe expression")
	}
	return n.Inner.Lower(c, d)
}
