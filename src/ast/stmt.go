package ast

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"vslac/src/diag"
	"vslac/src/lower"
	"vslac/src/token"
	"vslac/src/types"
)

// Stmt is the capability set every statement node variant implements.
type Stmt interface {
	Tok() token.Token
	Render(depth int) string
	Preprocess(c *lower.Context, d *diag.Bag)
	Lower(c *lower.Context, d *diag.Bag) error
}

// ---- Block ----

// Block is a brace-delimited sequence of statements that introduces its own symbol-table
// frame, per spec.md §3/§5 scoped acquisition.
type Block struct {
	Token      token.Token
	Statements []Stmt
}

func (n *Block) Tok() token.Token { return n.Token }
func (n *Block) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sBlock", indent(depth))
	for _, s := range n.Statements {
		sb.WriteRune('\n')
		sb.WriteString(s.Render(depth + 1))
	}
	return sb.String()
}

func (n *Block) Preprocess(c *lower.Context, d *diag.Bag) {
	for _, s := range n.Statements {
		s.Preprocess(c, d)
	}
}

func (n *Block) Lower(c *lower.Context, d *diag.Bag) error {
	c.PushScope()
	defer c.PopScope()
	for _, s := range n.Statements {
		if err := s.Lower(c, d); err != nil {
			return err
		}
	}
	return nil
}

// ---- ExpressionStatement ----

type ExpressionStatement struct {
	Token      token.Token
	Expression Expr
}

func (n *ExpressionStatement) Tok() token.Token { return n.Token }
func (n *ExpressionStatement) Render(depth int) string {
	return fmt.Sprintf("%sExpressionStatement\n%s", indent(depth), n.Expression.Render(depth+1))
}

func (n *ExpressionStatement) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Expression.Preprocess(c, d)
}

func (n *ExpressionStatement) Lower(c *lower.Context, d *diag.Bag) error {
	_, err := n.Expression.Lower(c, d)
	return err
}

// ---- VariableDeclaration ----

type VariableDeclaration struct {
	Token       token.Token
	Name        string
	Type        types.Type
	Initializer Expr // nil if uninitialized; LValueReference types require this to be non-nil.
}

func (n *VariableDeclaration) Tok() token.Token { return n.Token }
func (n *VariableDeclaration) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sVariableDeclaration(%s: %s)", indent(depth), n.Name, n.Type.Render())
	if n.Initializer != nil {
		sb.WriteRune('\n')
		sb.WriteString(n.Initializer.Render(depth + 1))
	}
	return sb.String()
}

func (n *VariableDeclaration) Preprocess(c *lower.Context, d *diag.Bag) {
	if n.Initializer != nil {
		n.Initializer.Preprocess(c, d)
	}
}

func (n *VariableDeclaration) Lower(c *lower.Context, d *diag.Bag) error {
	if types.IsUnsafe(n.Type) && !c.InUnsafeBlock {
		d.Error(n.Token, "Unsafe declaration outside of unsafe statement")
		return errors.New("unsafe declaration outside of unsafe statement")
	}

	if _, isRef := n.Type.(types.LValueReference); isRef && n.Initializer == nil {
		d.Error(n.Token, "Expected initialization value in declaration of reference variable")
		return errors.New("expected initialization value in declaration of reference variable")
	}

	elemType, err := n.Type.Lower(c.LLVM)
	if err != nil {
		return err
	}
	addr := c.Builder.CreateAlloca(elemType, n.Name)
	c.Declare(n.Name, &lower.Symbol{Addr: addr, Typ: n.Type})

	if n.Initializer == nil {
		return nil
	}

	if ref, isRef := n.Type.(types.LValueReference); isRef {
		// Reference initialization aliases the initializer's storage address rather than
		// copying its value (decided open question: "alias at declaration time").
		if !n.Initializer.IsLvalue() {
			d.Error(n.Token, "reference %q initialized from non-lvalue expression", n.Name)
			return errors.Errorf("reference %q requires an lvalue initializer", n.Name)
		}
		refAddr, err := n.Initializer.Lower(c, d)
		if err != nil {
			return err
		}
		if !types.Equal(n.Initializer.Typ(), ref.Referent) {
			d.Error(n.Token, "reference %q initializer type mismatch", n.Name)
			return errors.Errorf("reference %q initializer type mismatch", n.Name)
		}
		c.Builder.CreateStore(refAddr, addr)
		return nil
	}

	if init, ok := n.Initializer.(*ArrayInitList); ok {
		arr, ok := n.Type.(types.Array)
		if !ok {
			d.Error(n.Token, "array initializer applied to non-array declaration %q", n.Name)
			return errors.New("array initializer outside place")
		}
		return init.LowerInto(c, d, addr, arr)
	}

	v, err := loadValue(c, d, n.Initializer)
	if err != nil {
		return err
	}
	v, err = c.Coerce(v, n.Initializer.Typ(), n.Type)
	if err != nil {
		return err
	}
	c.Builder.CreateStore(v, addr)
	return nil
}

// ---- Param ----

// Param is a single formal parameter in a FunctionDeclaration's signature.
type Param struct {
	Name string
	Type types.Type
}

// ---- FunctionDeclaration ----

type FunctionDeclaration struct {
	Token      token.Token
	Name       string
	Params     []Param
	ReturnType types.Type
	Body       *Block // nil for a forward declaration with no body.

	value llvm.Value
}

func (n *FunctionDeclaration) Tok() token.Token { return n.Token }
func (n *FunctionDeclaration) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sFunctionDeclaration(%s: %s)", indent(depth), n.Name, n.ReturnType.Render())
	if n.Body != nil {
		sb.WriteRune('\n')
		sb.WriteString(n.Body.Render(depth + 1))
	}
	return sb.String()
}

// Preprocess registers the function's signature in the symbol table before any body is
// lowered, per spec.md §4.3's two-phase "preprocess then lower" design: this is what lets a
// function call its own later-declared sibling.
func (n *FunctionDeclaration) Preprocess(c *lower.Context, d *diag.Bag) {
	paramTypes := make([]types.Type, len(n.Params))
	llParams := make([]llvm.Type, len(n.Params))
	for i, p := range n.Params {
		paramTypes[i] = p.Type
		ll, err := p.Type.Lower(c.LLVM)
		if err != nil {
			d.Error(n.Token, "lowering parameter %q of %q: %v", p.Name, n.Name, err)
			return
		}
		llParams[i] = ll
	}
	retLL, err := n.ReturnType.Lower(c.LLVM)
	if err != nil {
		d.Error(n.Token, "lowering return type of %q: %v", n.Name, err)
		return
	}
	fnType := llvm.FunctionType(retLL, llParams, false)
	fn := llvm.AddFunction(c.Module, n.Name, fnType)
	n.value = fn

	c.Declare(n.Name, &lower.Symbol{
		Addr:       fn,
		Typ:        n.ReturnType,
		IsFunction: true,
		Params:     paramTypes,
	})
}

func (n *FunctionDeclaration) Lower(c *lower.Context, d *diag.Bag) error {
	if n.Body == nil {
		return nil
	}

	_, isVoid := n.ReturnType.(types.SimpleType)
	isVoidRet := isVoid && n.ReturnType.(types.SimpleType).Identifier == types.Void

	restore := c.EnterFunction(&lower.FuncInfo{Value: n.value, ReturnType: n.ReturnType, IsVoid: isVoidRet})
	defer restore()

	entry := c.LLVM.AddBasicBlock(n.value, "entry")
	c.Builder.SetInsertPointAtEnd(entry)

	c.PushScope()
	defer c.PopScope()

	for i, p := range n.Params {
		ll, err := p.Type.Lower(c.LLVM)
		if err != nil {
			return err
		}
		addr := c.Builder.CreateAlloca(ll, p.Name)
		c.Builder.CreateStore(n.value.Param(i), addr)
		c.Declare(p.Name, &lower.Symbol{Addr: addr, Typ: p.Type})
	}

	for _, s := range n.Body.Statements {
		if err := s.Lower(c, d); err != nil {
			return err
		}
	}

	if !isTerminated(c) {
		if isVoidRet {
			c.Builder.CreateRetVoid()
		} else {
			d.Warn(n.Token, "Expected return statement at the end of non-void returning function declaration; null value will be returned")
			retLL, err := n.ReturnType.Lower(c.LLVM)
			if err != nil {
				return err
			}
			zero := llvm.ConstNull(retLL)
			c.Builder.CreateRet(zero)
		}
	}

	c.OptimizeFunction(n.value)
	return nil
}

// ---- ReturnStatement ----

type ReturnStatement struct {
	Token token.Token
	Value Expr // nil for a bare `return;` in a void function.
}

func (n *ReturnStatement) Tok() token.Token { return n.Token }
func (n *ReturnStatement) Render(depth int) string {
	if n.Value == nil {
		return fmt.Sprintf("%sReturnStatement", indent(depth))
	}
	return fmt.Sprintf("%sReturnStatement\n%s", indent(depth), n.Value.Render(depth+1))
}

func (n *ReturnStatement) Preprocess(c *lower.Context, d *diag.Bag) {
	if n.Value != nil {
		n.Value.Preprocess(c, d)
	}
}

func (n *ReturnStatement) Lower(c *lower.Context, d *diag.Bag) error {
	fi := c.CurrentFunction
	if fi == nil {
		d.Error(n.Token, "return statement outside any function")
		return errors.New("return outside function")
	}

	if n.Value == nil {
		if !fi.IsVoid {
			d.Error(n.Token, "Expected value return statement in non-void returning function")
			return errors.New("expected value return statement in non-void returning function")
		}
		c.Builder.CreateRetVoid()
		return nil
	}

	if fi.IsVoid {
		d.Error(n.Token, "Unexpected value return statement in void function")
		return errors.New("unexpected value return statement in void function")
	}

	v, err := loadValue(c, d, n.Value)
	if err != nil {
		return err
	}
	v, err = c.Coerce(v, n.Value.Typ(), fi.ReturnType)
	if err != nil {
		d.Error(n.Token, "return value type does not match function return type")
		return err
	}
	c.Builder.CreateRet(v)
	return nil
}

// ---- UnsafeStatement ----

// UnsafeStatement wraps a block with InUnsafeBlock forced true for its duration, per spec.md
// §4.2.
type UnsafeStatement struct {
	Token token.Token
	Body  *Block
}

func (n *UnsafeStatement) Tok() token.Token { return n.Token }
func (n *UnsafeStatement) Render(depth int) string {
	return fmt.Sprintf("%sUnsafeStatement\n%s", indent(depth), n.Body.Render(depth+1))
}

func (n *UnsafeStatement) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Body.Preprocess(c, d)
}

func (n *UnsafeStatement) Lower(c *lower.Context, d *diag.Bag) error {
	wasAlready, restore := c.EnterUnsafe()
	defer restore()
	if wasAlready {
		d.Warn(n.Token, "Unnecessary unsafe statement")
	}
	return n.Body.Lower(c, d)
}

// ---- IfStatement ----

// IfStatement is a supplemented control-flow statement (spec.md's distillation omits it but
// original_source/ carries no recoverable files; grounded instead on the teacher's genIf basic
// block pattern in src/ir/llvm/transform.go).
type IfStatement struct {
	Token     token.Token
	Condition Expr
	Then      *Block
	Else      *Block // nil if there is no else clause.
}

func (n *IfStatement) Tok() token.Token { return n.Token }
func (n *IfStatement) Render(depth int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%sIfStatement\n%s\n%s", indent(depth), n.Condition.Render(depth+1), n.Then.Render(depth+1))
	if n.Else != nil {
		sb.WriteRune('\n')
		sb.WriteString(n.Else.Render(depth + 1))
	}
	return sb.String()
}

func (n *IfStatement) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Condition.Preprocess(c, d)
	n.Then.Preprocess(c, d)
	if n.Else != nil {
		n.Else.Preprocess(c, d)
	}
}

func (n *IfStatement) Lower(c *lower.Context, d *diag.Bag) error {
	cond, err := loadValue(c, d, n.Condition)
	if err != nil {
		return err
	}
	cond = truthy(c, cond, n.Condition.Typ())

	fn := c.CurrentFunction.Value
	thenBB := c.LLVM.AddBasicBlock(fn, "if.then")
	endBB := c.LLVM.AddBasicBlock(fn, "if.end")
	elseBB := endBB
	if n.Else != nil {
		elseBB = c.LLVM.AddBasicBlock(fn, "if.else")
	}

	c.Builder.CreateCondBr(cond, thenBB, elseBB)

	c.Builder.SetInsertPointAtEnd(thenBB)
	if err := n.Then.Lower(c, d); err != nil {
		return err
	}
	if c.Builder.GetInsertBlock().LastInstruction().IsNil() || !isTerminated(c) {
		c.Builder.CreateBr(endBB)
	}

	if n.Else != nil {
		c.Builder.SetInsertPointAtEnd(elseBB)
		if err := n.Else.Lower(c, d); err != nil {
			return err
		}
		if !isTerminated(c) {
			c.Builder.CreateBr(endBB)
		}
	}

	c.Builder.SetInsertPointAtEnd(endBB)
	return nil
}

// ---- WhileStatement ----

type WhileStatement struct {
	Token     token.Token
	Condition Expr
	Body      *Block
}

func (n *WhileStatement) Tok() token.Token { return n.Token }
func (n *WhileStatement) Render(depth int) string {
	return fmt.Sprintf("%sWhileStatement\n%s\n%s", indent(depth), n.Condition.Render(depth+1), n.Body.Render(depth+1))
}

func (n *WhileStatement) Preprocess(c *lower.Context, d *diag.Bag) {
	n.Condition.Preprocess(c, d)
	n.Body.Preprocess(c, d)
}

func (n *WhileStatement) Lower(c *lower.Context, d *diag.Bag) error {
	fn := c.CurrentFunction.Value
	condBB := c.LLVM.AddBasicBlock(fn, "while.cond")
	bodyBB := c.LLVM.AddBasicBlock(fn, "while.body")
	endBB := c.LLVM.AddBasicBlock(fn, "while.end")

	c.Builder.CreateBr(condBB)
	c.Builder.SetInsertPointAtEnd(condBB)
	cond, err := loadValue(c, d, n.Condition)
	if err != nil {
		return err
	}
	cond = truthy(c, cond, n.Condition.Typ())
	c.Builder.CreateCondBr(cond, bodyBB, endBB)

	c.Builder.SetInsertPointAtEnd(bodyBB)
	if err := n.Body.Lower(c, d); err != nil {
		return err
	}
	if !isTerminated(c) {
		c.Builder.CreateBr(condBB)
	}

	c.Builder.SetInsertPointAtEnd(endBB)
	return nil
}

func isTerminated(c *lower.Context) bool {
	last := c.Builder.GetInsertBlock().LastInstruction()
	return !last.IsNil() && !last.IsAReturnInst().IsNil() || !last.IsNil() && !last.IsABranchInst().IsNil()
}

func truthy(c *lower.Context, v llvm.Value, t types.Type) llvm.Value {
	st, ok := t.(types.SimpleType)
	if ok && st.Identifier.IsFloat() {
		zero, _ := c.ConstFloat(st, 0)
		return c.Builder.CreateFCmp(llvm.FloatONE, v, zero, "")
	}
	zero, _ := c.ConstInt(types.SimpleType{Identifier: types.Int}, 0)
	return c.Builder.CreateICmp(llvm.IntNE, v, zero, "")
}
