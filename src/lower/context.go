// Package lower provides the ambient lowering state described in spec.md §4.3/§9:
// the backend builder, the symbol-table stack, and the in_unsafe_block/current_function
// flags threaded through every AST node's Lower call. Grounded on the teacher's
// src/ir/llvm/transform.go, which owns exactly this set of globals (ctx, builder, module,
// a scope stack) for its own GenLLVM pass, but rebuilt here as an explicit, single-threaded
// *Context instead of package-level globals plus goroutine-guarded maps: spec.md §5 rules
// out the teacher's concurrency, so the mutexes and channels are gone.
package lower

import (
	"go.uber.org/zap"
	"tinygo.org/x/go-llvm"

	"vslac/src/diag"
	"vslac/src/types"
)

// Symbol is a single entry in a symbol frame: a lowered address (for variables) or function
// handle (for functions), tagged with its declared type and, for functions, a signature.
type Symbol struct {
	Addr       llvm.Value
	Typ        types.Type
	IsFunction bool
	Params     []types.Type
	IsConst    bool // reserved: no surface syntax declares a const binding yet (see DESIGN.md).
}

// Frame is one nested layer of the symbol table, pushed on scope entry and popped on exit.
type Frame struct {
	names map[string]*Symbol
}

func newFrame() *Frame {
	return &Frame{names: make(map[string]*Symbol)}
}

// FuncInfo describes the function currently being lowered, used to validate ReturnStatement.
type FuncInfo struct {
	Value      llvm.Value
	ReturnType types.Type
	IsVoid     bool
}

// Context is the Lowerer's ambient state: one per compilation unit, passed by pointer to
// every node's Lower/Preprocess call.
type Context struct {
	LLVM    llvm.Context
	Module  llvm.Module
	Builder llvm.Builder
	fpm     llvm.PassManager

	frames []*Frame

	InUnsafeBlock   bool
	CurrentFunction *FuncInfo

	Diagnostics *diag.Bag
	Log         *zap.SugaredLogger

	strings map[string]llvm.Value
}

// NewContext creates a Context with a fresh LLVM context/module/builder and a root symbol
// frame, mirroring the teacher's GenLLVM setup (ctx := llvm.NewContext(); b := ctx.NewBuilder();
// m := ctx.NewModule(name)) but without the parallel-generation machinery.
func NewContext(moduleName string, log *zap.SugaredLogger) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx := llvm.NewContext()
	b := ctx.NewBuilder()
	m := ctx.NewModule(moduleName)

	fpm := llvm.NewFunctionPassManagerForModule(m)
	fpm.AddPromoteMemoryToRegisterPass()
	fpm.AddInstructionCombiningPass()
	fpm.AddReassociatePass()
	fpm.AddGVNPass()
	fpm.AddCFGSimplificationPass()
	fpm.InitializeFunc()

	c := &Context{
		LLVM:        ctx,
		Module:      m,
		Builder:     b,
		fpm:         fpm,
		frames:      []*Frame{newFrame()},
		Diagnostics: &diag.Bag{},
		Log:         log,
		strings:     make(map[string]llvm.Value),
	}
	return c
}

// Dispose releases the underlying LLVM resources. Call once lowering and code generation for
// this compilation unit are complete.
func (c *Context) Dispose() {
	c.fpm.FinalizeFunc()
	c.fpm.Dispose()
	c.Builder.Dispose()
	c.Module.Dispose()
	c.LLVM.Dispose()
}

// PushScope pushes a fresh symbol frame on top of the stack. Pair with PopScope on every exit
// path, including error returns, per spec.md §5's scoped-acquisition discipline.
func (c *Context) PushScope() {
	c.frames = append(c.frames, newFrame())
}

// PopScope pops the top symbol frame. Popping an empty stack is a programming error in the
// caller and panics, since it would violate the symbol-table depth invariant (spec.md §3, §8).
func (c *Context) PopScope() {
	n := len(c.frames)
	if n == 0 {
		panic("lower: PopScope called on empty symbol-table stack")
	}
	c.frames = c.frames[:n-1]
}

// Depth returns the current symbol-table stack depth, used by tests to verify spec.md §8's
// round-trip invariant.
func (c *Context) Depth() int {
	return len(c.frames)
}

// Declare inserts name into the current (top) symbol frame.
func (c *Context) Declare(name string, sym *Symbol) {
	c.frames[len(c.frames)-1].names[name] = sym
}

// Lookup walks the symbol-table stack from the top frame outward and returns the first match.
func (c *Context) Lookup(name string) (*Symbol, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if sym, ok := c.frames[i].names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// EnterUnsafe sets InUnsafeBlock to true and returns a function that restores the prior value.
// This is the scope-guard pattern spec.md §9 calls for: "a guarded ownership of a mutation that
// must be undone on every exit path".
func (c *Context) EnterUnsafe() (wasAlready bool, restore func()) {
	wasAlready = c.InUnsafeBlock
	c.InUnsafeBlock = true
	return wasAlready, func() { c.InUnsafeBlock = wasAlready }
}

// EnterFunction swaps in fi as the current function and returns a restore function.
func (c *Context) EnterFunction(fi *FuncInfo) (restore func()) {
	prev := c.CurrentFunction
	c.CurrentFunction = fi
	return func() { c.CurrentFunction = prev }
}

// GlobalString interns a string literal as a global constant byte array and returns its
// address, per spec.md §4.4 "String literals lower to a global constant byte array and yield
// its address." Repeated identical literals share one global, matching the teacher's
// globals-map deduplication in ir/llvm/transform.go (there keyed by variable name; here keyed
// by content, since string literals have no name to deduplicate on).
func (c *Context) GlobalString(s string) llvm.Value {
	if v, ok := c.strings[s]; ok {
		return v
	}
	v := c.Builder.CreateGlobalStringPtr(s, "L_STR")
	c.strings[s] = v
	return v
}

// OptimizeFunction requests the per-function optimisation pass spec.md §4.5 calls for after a
// FunctionDeclaration's body has been lowered.
func (c *Context) OptimizeFunction(fn llvm.Value) {
	c.fpm.RunFunc(fn)
}
