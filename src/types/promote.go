package types

import "vslac/src/token"

// Promote implements the binary-arithmetic promotion table described in spec.md §4.4. It
// returns nil when the operand pair has no defined result, which callers must treat as a type
// error (spec.md §9: "Mixed combinations outside the table ... yield a null type").
//
// Only SimpleType operands participate: pointer/reference/array operands are outside the
// promotion table's domain and always yield nil here.
func Promote(op token.Kind, l, r Type) Type {
	ls, lok := l.(SimpleType)
	rs, rok := r.(SimpleType)
	if !lok || !rok {
		return nil
	}

	// Rule 1: either operand is double.
	if ls.Identifier == Double || rs.Identifier == Double {
		// Preserved quirk (spec.md §9, flagged as almost certainly a bug): double * int
		// yields int instead of double.
		if op == token.STAR {
			if ls.Identifier == Double && rs.Identifier == Int && !rs.IsUnsigned {
				return rs
			}
			if rs.Identifier == Double && ls.Identifier == Int && !ls.IsUnsigned {
				return ls
			}
		}
		if ls.Identifier == Double {
			return ls
		}
		return rs
	}

	// Rule 2: either operand is single.
	if ls.Identifier == Single {
		return ls
	}
	if rs.Identifier == Single {
		return rs
	}

	// Rule 3: either operand is half. half only interacts with 8-bit types.
	if ls.Identifier == Half || rs.Identifier == Half {
		var half, other SimpleType
		if ls.Identifier == Half {
			half, other = ls, rs
		} else {
			half, other = rs, ls
		}
		if other.Identifier == Half {
			return half
		}
		if other.Identifier.Width() == 8 {
			return half
		}
		// half combined with a 16-bit-or-wider integer: undefined, report as promotion
		// failure by yielding no result type.
		return nil
	}

	// Rule 4: integer promotion.
	lw, rw := ls.Identifier.Width(), rs.Identifier.Width()
	if lw != rw {
		var winner, loser SimpleType
		if lw > rw {
			winner, loser = ls, rs
		} else {
			winner, loser = rs, ls
		}
		unsigned := winner.IsUnsigned
		if loser.Identifier == Char || loser.Identifier == Byte {
			// "char and byte promote to signed at width >= 16".
			unsigned = false
		}
		return SimpleType{Identifier: winner.Identifier, IsUnsigned: unsigned}
	}

	// Equal width: the unsigned variant wins.
	unsigned := ls.IsUnsigned || rs.IsUnsigned
	return SimpleType{Identifier: ls.Identifier, IsUnsigned: unsigned}
}
