package lower

import (
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"vslac/src/types"
)

// Coerce converts val, of static type from, into the backend representation of static type to,
// inserting the sign/zero-extension, truncation or int/float conversion instruction the target
// width and signedness require. When from and to are structurally equal, val is returned
// unchanged whatever their kind (pointer, reference and array types included); otherwise both
// must be primitive arithmetic types, and it is the caller's responsibility to have resolved a
// result type via types.Promote first.
func (c *Context) Coerce(val llvm.Value, from, to types.Type) (llvm.Value, error) {
	if from == nil || to == nil {
		return llvm.Value{}, errors.New("cannot coerce an unresolved (nil) type")
	}
	if types.Equal(from, to) {
		return val, nil
	}
	fs, ok := from.(types.SimpleType)
	if !ok {
		return llvm.Value{}, errors.Errorf("cannot coerce non-primitive type %s", from.Render())
	}
	ts, ok := to.(types.SimpleType)
	if !ok {
		return llvm.Value{}, errors.Errorf("cannot coerce to non-primitive type %s", to.Render())
	}

	toLL, err := to.Lower(c.LLVM)
	if err != nil {
		return llvm.Value{}, errors.Wrap(err, "lowering coercion target type")
	}

	fromFloat := fs.Identifier.IsFloat()
	toFloat := ts.Identifier.IsFloat()

	switch {
	case fromFloat && toFloat:
		if ts.Identifier.Width() > fs.Identifier.Width() {
			return c.Builder.CreateFPExt(val, toLL, ""), nil
		}
		return c.Builder.CreateFPTrunc(val, toLL, ""), nil
	case fromFloat && !toFloat:
		if fs.IsUnsigned {
			return c.Builder.CreateFPToUI(val, toLL, ""), nil
		}
		return c.Builder.CreateFPToSI(val, toLL, ""), nil
	case !fromFloat && toFloat:
		if fs.IsUnsigned {
			return c.Builder.CreateUIToFP(val, toLL, ""), nil
		}
		return c.Builder.CreateSIToFP(val, toLL, ""), nil
	default:
		// Integer to integer.
		if ts.Identifier.Width() > fs.Identifier.Width() {
			if fs.IsUnsigned {
				return c.Builder.CreateZExt(val, toLL, ""), nil
			}
			return c.Builder.CreateSExt(val, toLL, ""), nil
		}
		if ts.Identifier.Width() < fs.Identifier.Width() {
			return c.Builder.CreateTrunc(val, toLL, ""), nil
		}
		// Equal width, differing signedness only: same backend representation.
		return val, nil
	}
}

// ConstInt builds a constant integer of the given primitive type.
func (c *Context) ConstInt(t types.SimpleType, v int64) (llvm.Value, error) {
	ll, err := t.Lower(c.LLVM)
	if err != nil {
		return llvm.Value{}, err
	}
	return llvm.ConstInt(ll, uint64(v), !t.IsUnsigned), nil
}

// ConstFloat builds a constant float of the given primitive type.
func (c *Context) ConstFloat(t types.SimpleType, v float64) (llvm.Value, error) {
	ll, err := t.Lower(c.LLVM)
	if err != nil {
		return llvm.Value{}, err
	}
	return llvm.ConstFloat(ll, v), nil
}
