package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslac/src/ast"
	"vslac/src/diag"
	"vslac/src/frontend"
	"vslac/src/lower"
	"vslac/src/parser"
	"vslac/src/token"
)

// compile runs the full Lex -> Parse -> Preprocess -> Lower pipeline and returns the lowering
// context (for IR/symbol-table inspection) and the diagnostics collected along the way.
func compile(t *testing.T, src string) (*lower.Context, *diag.Bag) {
	t.Helper()
	tokens, err := frontend.Lex(src)
	require.NoError(t, err)

	p := parser.New(tokens)
	stmts, ok := p.Parse()
	require.True(t, ok, "parse errors: %v", p.GetErrors())

	c := lower.NewContext("test", nil)
	d := &diag.Bag{}
	for _, s := range stmts {
		s.Preprocess(c, d)
	}
	for _, s := range stmts {
		_ = s.Lower(c, d)
	}
	return c, d
}

func TestMainReturningZeroLowersCleanly(t *testing.T) {
	c, d := compile(t, "int main() { return 0; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	assert.Contains(t, c.Module.String(), "define i32 @main")
}

func TestArithmeticExpressionLowersWithoutError(t *testing.T) {
	c, d := compile(t, "int main() { int x = 1 + 2 * 3; return x; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
}

func TestArithmeticConstantFoldsToSeven(t *testing.T) {
	// 1 + 2 * 3 should be compile-time evaluable to 7 via BinaryOperation.Evaluate's closed
	// EvalValue sum, agreeing with the runtime lowering exercised above.
	lit := func(v int64) *ast.IntegerLiteral {
		return &ast.IntegerLiteral{Value: v}
	}
	tree := &ast.BinaryOperation{
		Operator: token.PLUS,
		Left:     lit(1),
		Right: &ast.BinaryOperation{
			Operator: token.STAR,
			Left:     lit(2),
			Right:    lit(3),
		},
	}
	got, ok := tree.Evaluate()
	require.True(t, ok)
	assert.Equal(t, ast.EvalSigned, got.Kind)
	assert.Equal(t, int64(7), got.Signed)
}

func TestUnaryEvaluateFoldsAsZeroPlusOrMinusOperand(t *testing.T) {
	five := &ast.IntegerLiteral{Value: 5}

	plus := &ast.UnaryOperation{Operator: token.PLUS, Operand: five}
	got, ok := plus.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(5), got.Signed)

	minus := &ast.UnaryOperation{Operator: token.MINUS, Operand: five}
	got, ok = minus.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(-5), got.Signed)
}

func TestBinaryEvaluateFailsOnKindMismatchAndDivisionByZero(t *testing.T) {
	signedLit := &ast.IntegerLiteral{Value: 1}
	unsignedLit := &ast.IntegerLiteral{Value: 2, Unsigned: true}
	mismatch := &ast.BinaryOperation{Operator: token.PLUS, Left: signedLit, Right: unsignedLit}
	_, ok := mismatch.Evaluate()
	assert.False(t, ok, "signed + unsigned operands should fail to evaluate, not silently coerce")

	divByZero := &ast.BinaryOperation{
		Operator: token.SLASH,
		Left:     &ast.IntegerLiteral{Value: 1},
		Right:    &ast.IntegerLiteral{Value: 0},
	}
	_, ok = divByZero.Evaluate()
	assert.False(t, ok)
}

func TestUnboundSymbolProducesExactDiagnostic(t *testing.T) {
	_, d := compile(t, "int main() { return x; }")
	require.True(t, d.HasErrors())
	assert.Equal(t, `Unbound symbol "x"`, d.Errors()[0].Message)
}

func TestUnsafePointerDeclarationRequiresUnsafeBlock(t *testing.T) {
	_, d := compile(t, "int f() { int x; int* p = &x; return x; }")
	require.True(t, d.HasErrors())
	assert.Equal(t, "Unsafe declaration outside of unsafe statement", d.Errors()[0].Message)
}

func TestUnsafePointerDeclarationInsideUnsafeBlockSucceeds(t *testing.T) {
	c, d := compile(t, "int f() { int x; unsafe { int* p = &x; } return x; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
}

func TestReferenceDeclarationWithoutInitializerFails(t *testing.T) {
	_, d := compile(t, "int f() { int x; int& r; return x; }")
	require.True(t, d.HasErrors())
	assert.Equal(t, "Expected initialization value in declaration of reference variable", d.Errors()[0].Message)
}

func TestNonCallableExpressionCallFails(t *testing.T) {
	_, d := compile(t, "int main() { int x = 0; return x(); }")
	require.True(t, d.HasErrors())
	assert.Equal(t, "Expected callable function expression", d.Errors()[0].Message)
}

func TestArrayInitListAgainstNonArrayDeclarationFails(t *testing.T) {
	_, d := compile(t, "int f() { int x = {1, 2}; return x; }")
	require.True(t, d.HasErrors())
}

func TestArrayDeclarationWithInitializerLowersCleanly(t *testing.T) {
	c, d := compile(t, "int f() { int a[3] = {1, 2, 3}; return 0; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
}

func TestForwardFunctionCallLowersCleanly(t *testing.T) {
	c, d := compile(t, "int f(int a, int b) { return a + b; } int main() { return f(2, 3); }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	ir := c.Module.String()
	assert.Contains(t, ir, "define i32 @f")
	assert.Contains(t, ir, "define i32 @main")
	assert.Contains(t, ir, "call i32 @f")
}

func TestMissingReturnValueInNonVoidFunctionFails(t *testing.T) {
	_, d := compile(t, "int f() { return; }")
	require.True(t, d.HasErrors())
	assert.Equal(t, "Expected value return statement in non-void returning function", d.Errors()[0].Message)
}

func TestValueReturnInVoidFunctionFails(t *testing.T) {
	_, d := compile(t, "void f() { return 1; }")
	require.True(t, d.HasErrors())
	assert.Equal(t, "Unexpected value return statement in void function", d.Errors()[0].Message)
}

func TestMissingTerminalReturnWarnsAndStillLowers(t *testing.T) {
	c, d := compile(t, "int f() { int x = 1; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	require.NotEmpty(t, d.Warnings())
	assert.Equal(t,
		"Expected return statement at the end of non-void returning function declaration; null value will be returned",
		d.Warnings()[0].Message)
}

func TestBlockLoweringRestoresSymbolTableDepthOnSuccess(t *testing.T) {
	c, d := compile(t, "int f() { int x = 1; return x; }")
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	assert.Equal(t, 1, c.Depth())
}

func TestBlockLoweringRestoresSymbolTableDepthOnFailure(t *testing.T) {
	c, d := compile(t, "int main() { return x; }")
	defer c.Dispose()
	assert.True(t, d.HasErrors())
	assert.Equal(t, 1, c.Depth())
}

func TestIfElseLowersBothBranches(t *testing.T) {
	c, d := compile(t, `
		int f(int a) {
			if (a < 0) {
				return 0;
			} else {
				return 1;
			}
		}
	`)
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	ir := c.Module.String()
	assert.Contains(t, ir, "if.then")
	assert.Contains(t, ir, "if.else")
}

func TestWhileLoopLowersConditionAndBody(t *testing.T) {
	c, d := compile(t, `
		int f(int a) {
			while (a < 10) {
				a = a + 1;
			}
			return a;
		}
	`)
	defer c.Dispose()
	assert.False(t, d.HasErrors())
	ir := c.Module.String()
	assert.Contains(t, ir, "while.cond")
	assert.Contains(t, ir, "while.body")
}

func TestUnnecessaryUnsafeStatementWarns(t *testing.T) {
	c, d := compile(t, "int f() { unsafe { unsafe { int* p; } } return 0; }")
	defer c.Dispose()
	require.NotEmpty(t, d.Warnings())
	assert.Equal(t, "Unnecessary unsafe statement", d.Warnings()[0].Message)
}
