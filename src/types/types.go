// Package types implements the semantic type tree described in spec.md §3 "Types": the
// polymorphic hierarchy of primitive, pointer, lvalue-reference and array types that every
// AST node in package ast carries once lowering has run.
//
// The hierarchy is re-architected, per spec.md §9 "Polymorphic AST without inheritance", as a
// closed set of structs implementing a single Type interface rather than an open class
// hierarchy with dynamic_cast probes.
package types

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// Type is the capability set every semantic type variant implements: Render for debug/golden
// printing, Lower for producing the backend (LLVM) type, and IsSafe for the pointer-freedom
// check spec.md §3 defines.
type Type interface {
	Render() string
	Lower(ctx llvm.Context) (llvm.Type, error)
	IsSafe() bool
}

// Identifier enumerates the primitive type names of the source language.
type Identifier int

const (
	Char Identifier = iota
	Byte
	Short
	Int
	Long
	Half
	Single
	Double
	Void
)

var identifierNames = [...]string{
	Char: "char", Byte: "byte", Short: "short", Int: "int", Long: "long",
	Half: "half", Single: "single", Double: "double", Void: "void",
}

func (i Identifier) String() string {
	if i < 0 || int(i) >= len(identifierNames) {
		return fmt.Sprintf("Identifier(%d)", int(i))
	}
	return identifierNames[i]
}

// IsFloat reports whether the Identifier names a floating-point primitive.
func (i Identifier) IsFloat() bool {
	return i == Half || i == Single || i == Double
}

// Width returns the bit width of the primitive, or 0 for Void.
func (i Identifier) Width() int {
	switch i {
	case Char, Byte:
		return 8
	case Short, Half:
		return 16
	case Int, Single:
		return 32
	case Long, Double:
		return 64
	default:
		return 0
	}
}

// SimpleType is a primitive type, optionally unsigned.
type SimpleType struct {
	Identifier Identifier
	IsUnsigned bool
}

// Render renders the SimpleType as source-like text, e.g. "unsigned int".
func (s SimpleType) Render() string {
	if s.IsUnsigned && !s.Identifier.IsFloat() && s.Identifier != Void {
		return "unsigned " + s.Identifier.String()
	}
	return s.Identifier.String()
}

// Lower returns the backend primitive type corresponding to (Identifier, IsUnsigned). Signedness
// does not change the LLVM type (LLVM integers are sign-agnostic); it only affects which
// instructions the lowerer later selects (signed vs. unsigned comparisons, extension).
func (s SimpleType) Lower(ctx llvm.Context) (llvm.Type, error) {
	switch s.Identifier {
	case Char, Byte:
		return ctx.Int8Type(), nil
	case Short:
		return ctx.Int16Type(), nil
	case Int:
		return ctx.Int32Type(), nil
	case Long:
		return ctx.Int64Type(), nil
	case Half:
		return ctx.HalfType(), nil
	case Single:
		return ctx.FloatType(), nil
	case Double:
		return ctx.DoubleType(), nil
	case Void:
		return ctx.VoidType(), nil
	default:
		return llvm.Type{}, errors.Errorf("unknown primitive type identifier %s", s.Identifier)
	}
}

// IsSafe is always true for primitives: no pointer appears in their structure.
func (s SimpleType) IsSafe() bool {
	return true
}

// Pointer is an unsafe reference-by-address type; it may only be declared or dereferenced
// within an unsafe region (see ast.UnsafeStatement / ast.UnsafeExpression).
type Pointer struct {
	Pointee Type
}

func (p Pointer) Render() string {
	return p.Pointee.Render() + "*"
}

func (p Pointer) Lower(ctx llvm.Context) (llvm.Type, error) {
	pointee, err := p.Pointee.Lower(ctx)
	if err != nil {
		return llvm.Type{}, errors.Wrap(err, "lowering pointee of pointer type")
	}
	return llvm.PointerType(pointee, 0), nil
}

// IsSafe is always false: a Pointer makes the enclosing type unsafe regardless of what it
// points to.
func (p Pointer) IsSafe() bool {
	return false
}

// LValueReference is a safe alias for a storage location. It lowers to the same machine
// representation as a Pointer (a backend pointer type) but remains safe: taking a reference
// does not require an unsafe region.
type LValueReference struct {
	Referent Type
}

func (r LValueReference) Render() string {
	return r.Referent.Render() + "&"
}

func (r LValueReference) Lower(ctx llvm.Context) (llvm.Type, error) {
	referent, err := r.Referent.Lower(ctx)
	if err != nil {
		return llvm.Type{}, errors.Wrap(err, "lowering referent of reference type")
	}
	return llvm.PointerType(referent, 0), nil
}

func (r LValueReference) IsSafe() bool {
	return true
}

// Array is a fixed-length, contiguously-stored sequence of Element.
type Array struct {
	Element Type
	Length  int
}

func (a Array) Render() string {
	return fmt.Sprintf("%s[%d]", a.Element.Render(), a.Length)
}

func (a Array) Lower(ctx llvm.Context) (llvm.Type, error) {
	elem, err := a.Element.Lower(ctx)
	if err != nil {
		return llvm.Type{}, errors.Wrap(err, "lowering element type of array type")
	}
	return llvm.ArrayType(elem, a.Length), nil
}

// IsSafe recurses into the element type: an array of pointers is unsafe.
func (a Array) IsSafe() bool {
	return a.Element.IsSafe()
}

// IsUnsafe is the spec.md §3 negation helper used throughout the lowerer: "a type is safe iff
// no Pointer appears anywhere in its structure".
func IsUnsafe(t Type) bool {
	return !t.IsSafe()
}

// Equal reports structural equality between two Types, used by the lowerer's coercion and by
// the reference initializer check.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case SimpleType:
		y, ok := b.(SimpleType)
		return ok && x.Identifier == y.Identifier && x.IsUnsigned == y.IsUnsigned
	case Pointer:
		y, ok := b.(Pointer)
		return ok && Equal(x.Pointee, y.Pointee)
	case LValueReference:
		y, ok := b.(LValueReference)
		return ok && Equal(x.Referent, y.Referent)
	case Array:
		y, ok := b.(Array)
		return ok && x.Length == y.Length && Equal(x.Element, y.Element)
	default:
		return false
	}
}
