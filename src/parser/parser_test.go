package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslac/src/ast"
	"vslac/src/frontend"
	"vslac/src/types"
)

func parse(t *testing.T, src string) ([]ast.Stmt, *Parser) {
	t.Helper()
	tokens, err := frontend.Lex(src)
	require.NoError(t, err)
	p := New(tokens)
	stmts, _ := p.Parse()
	return stmts, p
}

func TestParseMainFunction(t *testing.T) {
	stmts, p := parse(t, "int main() { return 0; }")
	require.Empty(t, p.GetErrors())
	require.Len(t, stmts, 1)

	fn, ok := stmts[0].(*ast.FunctionDeclaration)
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, types.SimpleType{Identifier: types.Int}, fn.ReturnType)
	require.Len(t, fn.Body.Statements, 1)
	_, ok = fn.Body.Statements[0].(*ast.ReturnStatement)
	assert.True(t, ok)
}

func TestParseVoidParamList(t *testing.T) {
	stmts, p := parse(t, "int f(void) { return 1; }")
	require.Empty(t, p.GetErrors())
	fn := stmts[0].(*ast.FunctionDeclaration)
	assert.Empty(t, fn.Params)
}

func TestParseTrailingCommaInCallIsSyntaxError(t *testing.T) {
	_, p := parse(t, "int main() { return f(1, 2,); }")
	assert.True(t, p.GetErrors() != nil)
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	stmts, p := parse(t, "int main() { int a; int b; int c; a = b = c; return 0; }")
	require.Empty(t, p.GetErrors())
	fn := stmts[0].(*ast.FunctionDeclaration)
	exprStmt := fn.Body.Statements[3].(*ast.ExpressionStatement)
	assign, ok := exprStmt.Expression.(*ast.Assignment)
	require.True(t, ok)
	_, nested := assign.Value.(*ast.Assignment)
	assert.True(t, nested, "a = b = c should nest as a = (b = c)")
}

func TestParseArrayDeclarationAndInitializer(t *testing.T) {
	stmts, p := parse(t, "int a[3] = {1, 2, 3};")
	require.Empty(t, p.GetErrors())
	decl := stmts[0].(*ast.VariableDeclaration)
	arr, ok := decl.Type.(types.Array)
	require.True(t, ok)
	assert.Equal(t, 3, arr.Length)
	list, ok := decl.Initializer.(*ast.ArrayInitList)
	require.True(t, ok)
	assert.Len(t, list.Elements, 3)
}

func TestParseUnboundReturnStillParses(t *testing.T) {
	stmts, p := parse(t, "int main() { return x; }")
	require.Empty(t, p.GetErrors())
	fn := stmts[0].(*ast.FunctionDeclaration)
	ret := fn.Body.Statements[0].(*ast.ReturnStatement)
	id, ok := ret.Value.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "x", id.Name)
}

func TestParseUnsafeBlockWithPointerDeclaration(t *testing.T) {
	stmts, p := parse(t, "int x; unsafe { int* p = &x; }")
	require.Empty(t, p.GetErrors())
	require.Len(t, stmts, 2)
	us, ok := stmts[1].(*ast.UnsafeStatement)
	require.True(t, ok)
	require.Len(t, us.Body.Statements, 1)
	decl := us.Body.Statements[0].(*ast.VariableDeclaration)
	ptr, ok := decl.Type.(types.Pointer)
	require.True(t, ok)
	assert.Equal(t, types.SimpleType{Identifier: types.Int}, ptr.Pointee)
}

func TestParseIfElseAndWhile(t *testing.T) {
	stmts, p := parse(t, `
		int f(int a) {
			if (a < 0) {
				return 0;
			} else {
				return 1;
			}
		}
		int g(int a) {
			while (a < 10) {
				a = a + 1;
			}
			return a;
		}
	`)
	require.Empty(t, p.GetErrors())
	require.Len(t, stmts, 2)

	f := stmts[0].(*ast.FunctionDeclaration)
	ifStmt, ok := f.Body.Statements[0].(*ast.IfStatement)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)

	g := stmts[1].(*ast.FunctionDeclaration)
	_, ok = g.Body.Statements[0].(*ast.WhileStatement)
	assert.True(t, ok)
}

func TestParseMismatchedTokenRecordsExpectedError(t *testing.T) {
	_, p := parse(t, "int main( { return 0; }")
	errs := p.GetErrors()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "Expected")
}

func TestParseFunctionForwardReference(t *testing.T) {
	stmts, p := parse(t, "int f(int a, int b) { return a + b; } int main() { return f(2, 3); }")
	require.Empty(t, p.GetErrors())
	require.Len(t, stmts, 2)
	assert.Equal(t, "f", stmts[0].(*ast.FunctionDeclaration).Name)
	assert.Equal(t, "main", stmts[1].(*ast.FunctionDeclaration).Name)
}
