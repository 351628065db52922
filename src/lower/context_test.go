package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"

	"vslac/src/types"
)

func TestNewContextStartsWithOneFrame(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()
	assert.Equal(t, 1, c.Depth())
}

func TestPushPopScopeRestoresDepth(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	depth := c.Depth()
	c.PushScope()
	assert.Equal(t, depth+1, c.Depth())
	c.PopScope()
	assert.Equal(t, depth, c.Depth())
}

func TestPopScopeOnEmptyStackPanics(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()
	c.PopScope() // drop the root frame, stack now empty
	assert.Panics(t, func() { c.PopScope() })
}

func TestDeclareAndLookupWalksOuterFrames(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	sym := &Symbol{Typ: types.SimpleType{Identifier: types.Int}}
	c.Declare("x", sym)

	c.PushScope()
	got, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Same(t, sym, got)
	c.PopScope()

	_, ok = c.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestDeclareShadowsInInnerFrame(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	outer := &Symbol{Typ: types.SimpleType{Identifier: types.Int}}
	c.Declare("x", outer)

	c.PushScope()
	inner := &Symbol{Typ: types.SimpleType{Identifier: types.Double}}
	c.Declare("x", inner)

	got, _ := c.Lookup("x")
	assert.Same(t, inner, got)
	c.PopScope()

	got, _ = c.Lookup("x")
	assert.Same(t, outer, got)
}

func TestEnterUnsafeRestoresPriorValue(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	assert.False(t, c.InUnsafeBlock)
	wasAlready, restore := c.EnterUnsafe()
	assert.False(t, wasAlready)
	assert.True(t, c.InUnsafeBlock)

	wasAlready2, restore2 := c.EnterUnsafe()
	assert.True(t, wasAlready2)
	restore2()
	assert.True(t, c.InUnsafeBlock)

	restore()
	assert.False(t, c.InUnsafeBlock)
}

func TestEnterFunctionRestoresPriorFunction(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	assert.Nil(t, c.CurrentFunction)
	fi := &FuncInfo{IsVoid: true}
	restore := c.EnterFunction(fi)
	assert.Same(t, fi, c.CurrentFunction)
	restore()
	assert.Nil(t, c.CurrentFunction)
}

func TestGlobalStringDeduplicatesIdenticalLiterals(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	voidTy := c.LLVM.VoidType()
	fn := llvm.AddFunction(c.Module, "f", llvm.FunctionType(voidTy, nil, false))
	entry := c.LLVM.AddBasicBlock(fn, "entry")
	c.Builder.SetInsertPointAtEnd(entry)

	a := c.GlobalString("hello")
	b := c.GlobalString("hello")
	other := c.GlobalString("world")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}

func TestCoerceSameTypeIsNoop(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	intTy := types.SimpleType{Identifier: types.Int}
	v, err := c.ConstInt(intTy, 7)
	require.NoError(t, err)

	got, err := c.Coerce(v, intTy, intTy)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestCoerceWidensSmallerIntType(t *testing.T) {
	c := NewContext("test", nil)
	defer c.Dispose()

	voidTy := c.LLVM.VoidType()
	fn := llvm.AddFunction(c.Module, "f", llvm.FunctionType(voidTy, nil, false))
	entry := c.LLVM.AddBasicBlock(fn, "entry")
	c.Builder.SetInsertPointAtEnd(entry)

	shortTy := types.SimpleType{Identifier: types.Short}
	longTy := types.SimpleType{Identifier: types.Long}
	v, err := c.ConstInt(shortTy, 3)
	require.NoError(t, err)

	got, err := c.Coerce(v, shortTy, longTy)
	require.NoError(t, err)
	assert.False(t, got.IsNil())
}
