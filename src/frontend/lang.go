package frontend

import "vslac/src/token"

type reservedItem struct {
	val string
	typ token.Kind
}

// rw contains the set of all reserved keywords, indexed by word length (the first dimension
// equals len(word)-1, so rw[0] holds the one-letter words) so a lookup only scans the words of
// a matching length instead of every keyword. Grounded on the teacher's src/frontend/lang.go length-indexed table.
var rw = [...][]reservedItem{
	// One-grams
	{},
	// Two-grams
	{
		{val: "if", typ: token.IF},
	},
	// Three-grams
	{
		{val: "int", typ: token.INT},
	},
	// Four-grams
	{
		{val: "char", typ: token.CHAR},
		{val: "void", typ: token.VOID},
		{val: "long", typ: token.LONG},
		{val: "else", typ: token.ELSE},
	},
	// Five-grams
	{
		{val: "short", typ: token.SHORT},
		{val: "while", typ: token.WHILE},
	},
	// Six-grams
	{
		{val: "return", typ: token.RETURN},
		{val: "signed", typ: token.SIGNED},
		{val: "unsafe", typ: token.UNSAFE},
	},
	// Seven-grams
	{},
	// Eight-grams
	{
		{val: "unsigned", typ: token.UNSIGNED},
	},
}

// isKeyword reports whether s is a reserved keyword and, if so, its Kind.
func isKeyword(s string) (bool, token.Kind) {
	if len(s) == 0 || len(s) > len(rw) {
		return false, token.IDENTIFIER
	}
	for _, e := range rw[len(s)-1] {
		if e.val == s {
			return true, e.typ
		}
	}
	return false, token.IDENTIFIER
}
