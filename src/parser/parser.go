// Package parser implements the hand-written recursive-descent driver described in spec.md
// §4.1: a single-token cursor over an externally-produced token sequence, with no lookahead
// beyond one token and no panic-mode resynchronization. Grounded in spirit on the teacher's
// hand-written lexer (src/frontend/lexer.go, a Rob Pike style stateFunc machine) for the
// cursor-primitive naming (current/next/accept), even though the teacher itself parses via
// goyacc: spec.md §9 "Polymorphic AST without inheritance" calls for the re-architecture this
// package performs.
package parser

import (
	"vslac/src/ast"
	"vslac/src/diag"
	"vslac/src/token"
	"vslac/src/types"
)

// Parser drives the grammar over a fixed token slice produced by an external tokenizer.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  diag.Bag
}

// New constructs a Parser over tokens. tokens must be terminated by an EOF-kind sentinel that
// no production consumes, per spec.md §6.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// current peeks at the token under the cursor without consuming it.
func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// previous peeks at the token immediately behind the cursor.
func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

// next peeks one token ahead of the cursor without consuming anything.
func (p *Parser) next() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

// accept advances past current() and returns true iff its kind matches; otherwise the cursor
// is left unmoved.
func (p *Parser) accept(kind token.Kind) bool {
	if p.current().Kind == kind {
		p.pos++
		return true
	}
	return false
}

// expect behaves like accept but records a SyntaxExpected diagnostic on mismatch, in the exact
// form spec.md §4.1 and §7 specify: `Expected <expected>, but got "<lexeme>"`.
func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	tok := p.current()
	if p.accept(kind) {
		return tok, true
	}
	p.diags.Error(tok, "Expected %s, but got %q", kind, tok.Text)
	return tok, false
}

// GetErrors returns the accumulated diagnostics, mirroring spec.md §4.1's get_errors().
func (p *Parser) GetErrors() []diag.Entry {
	return p.diags.Errors()
}

// Parse drives the top-level block production and reports success iff no error was
// accumulated along the way, per spec.md §4.1's parse(out).
func (p *Parser) Parse() ([]ast.Stmt, bool) {
	stmts := p.block()
	return stmts, !p.diags.HasErrors()
}

// block := scope*
func (p *Parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for p.current().Kind != token.EOF {
		before := p.pos
		s := p.scope()
		if s == nil {
			if p.pos == before {
				// Guarantee forward progress on an unrecoverable token.
				p.diags.Error(p.current(), "Unexpected %q", p.current().Text)
				p.pos++
			}
			continue
		}
		stmts = append(stmts, s)
	}
	return stmts
}

// scope := '{' statement* '}'  |  statement
func (p *Parser) scope() ast.Stmt {
	if p.current().Kind == token.LBRACE {
		tok := p.current()
		p.accept(token.LBRACE)
		body := &ast.Block{Token: tok}
		for p.current().Kind != token.RBRACE && p.current().Kind != token.EOF {
			s := p.statement()
			if s == nil {
				break
			}
			body.Statements = append(body.Statements, s)
		}
		p.expect(token.RBRACE)
		return body
	}
	return p.statement()
}

// statement := var_decl | return_stmt | unsafe_stmt | if_stmt | while_stmt | scope | expr_stmt
func (p *Parser) statement() ast.Stmt {
	switch p.current().Kind {
	case token.RETURN:
		return p.returnStmt()
	case token.UNSAFE:
		return p.unsafeStmt()
	case token.IF:
		return p.ifStmt()
	case token.WHILE:
		return p.whileStmt()
	case token.LBRACE:
		return p.scope()
	}
	if p.startsType() {
		return p.varDecl()
	}
	return p.exprStmt()
}

func (p *Parser) startsType() bool {
	switch p.current().Kind {
	case token.UNSIGNED, token.SIGNED, token.CHAR, token.SHORT, token.INT, token.LONG, token.VOID:
		return true
	}
	return false
}

// var_decl := type identifier ( '=' expr ';' | ';' | '(' func_decl_tail )
func (p *Parser) varDecl() ast.Stmt {
	tok := p.current()
	typ := p.typeSpec()

	for p.accept(token.AMP) {
		typ = types.LValueReference{Referent: typ}
	}

	nameTok, ok := p.expect(token.IDENTIFIER)
	if !ok {
		return nil
	}
	name := nameTok.Text

	for p.accept(token.LBRACK) {
		lenTok, ok := p.expect(token.INTEGER)
		if !ok {
			return nil
		}
		p.expect(token.RBRACK)
		length := parseIntLiteral(lenTok.Text)
		typ = types.Array{Element: typ, Length: length}
	}

	if p.accept(token.LPAREN) {
		return p.funcDeclTail(tok, name, typ)
	}

	decl := &ast.VariableDeclaration{Token: tok, Name: name, Type: typ}
	if p.accept(token.ASSIGN) {
		decl.Initializer = p.initializer()
	}
	p.expect(token.SEMICOLON)
	return decl
}

// initializer := '{' (expr (',' expr)*)? '}'  |  expr
func (p *Parser) initializer() ast.Expr {
	if p.current().Kind == token.LBRACE {
		tok := p.current()
		p.accept(token.LBRACE)
		list := &ast.ArrayInitList{Token: tok}
		if p.current().Kind != token.RBRACE {
			list.Elements = append(list.Elements, p.initializer())
			for p.accept(token.COMMA) {
				list.Elements = append(list.Elements, p.initializer())
			}
		}
		p.expect(token.RBRACE)
		return list
	}
	return p.expr()
}

// func_decl_tail := param_list ')' scope
func (p *Parser) funcDeclTail(tok token.Token, name string, retType types.Type) ast.Stmt {
	params := p.paramList()
	p.expect(token.RPAREN)

	decl := &ast.FunctionDeclaration{Token: tok, Name: name, Params: params, ReturnType: retType}
	if p.current().Kind == token.LBRACE {
		body := p.scope()
		if b, ok := body.(*ast.Block); ok {
			decl.Body = b
		}
	} else {
		p.expect(token.SEMICOLON)
	}
	return decl
}

// param_list := ( type identifier? (',' type identifier?)* )?   // 'void' alone = no params
func (p *Parser) paramList() []ast.Param {
	if p.current().Kind == token.VOID && p.next().Kind == token.RPAREN {
		p.accept(token.VOID)
		return nil
	}
	if p.current().Kind == token.RPAREN {
		return nil
	}

	var params []ast.Param
	for {
		typ := p.typeSpec()
		for p.accept(token.AMP) {
			typ = types.LValueReference{Referent: typ}
		}
		name := ""
		if p.current().Kind == token.IDENTIFIER {
			name = p.current().Text
			p.accept(token.IDENTIFIER)
		}
		params = append(params, ast.Param{Name: name, Type: typ})
		if !p.accept(token.COMMA) {
			break
		}
	}
	return params
}

// return_stmt := 'return' expr? ';'
func (p *Parser) returnStmt() ast.Stmt {
	tok := p.current()
	p.accept(token.RETURN)
	stmt := &ast.ReturnStatement{Token: tok}
	if p.current().Kind != token.SEMICOLON {
		stmt.Value = p.expr()
	}
	p.expect(token.SEMICOLON)
	return stmt
}

// unsafe_stmt := 'unsafe' scope
func (p *Parser) unsafeStmt() ast.Stmt {
	tok := p.current()
	p.accept(token.UNSAFE)
	body := p.scope()
	b, ok := body.(*ast.Block)
	if !ok {
		b = &ast.Block{Token: tok, Statements: []ast.Stmt{body}}
	}
	return &ast.UnsafeStatement{Token: tok, Body: b}
}

// if_stmt := 'if' '(' expr ')' scope ( 'else' scope )?
func (p *Parser) ifStmt() ast.Stmt {
	tok := p.current()
	p.accept(token.IF)
	p.expect(token.LPAREN)
	cond := p.expr()
	p.expect(token.RPAREN)
	thenBlock := asBlock(tok, p.scope())

	stmt := &ast.IfStatement{Token: tok, Condition: cond, Then: thenBlock}
	if p.accept(token.ELSE) {
		stmt.Else = asBlock(tok, p.scope())
	}
	return stmt
}

// while_stmt := 'while' '(' expr ')' scope
func (p *Parser) whileStmt() ast.Stmt {
	tok := p.current()
	p.accept(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.expr()
	p.expect(token.RPAREN)
	body := asBlock(tok, p.scope())
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}
}

func asBlock(tok token.Token, s ast.Stmt) *ast.Block {
	if b, ok := s.(*ast.Block); ok {
		return b
	}
	if s == nil {
		return &ast.Block{Token: tok}
	}
	return &ast.Block{Token: tok, Statements: []ast.Stmt{s}}
}

// expr_stmt := expr ';'
func (p *Parser) exprStmt() ast.Stmt {
	tok := p.current()
	e := p.expr()
	p.expect(token.SEMICOLON)
	return &ast.ExpressionStatement{Token: tok, Expression: e}
}

// expr := assign
func (p *Parser) expr() ast.Expr {
	return p.assign()
}

// assign := logicalOr ( ('='|'+='|'-='|'*='|'/=') assign )?
//
// Right-associative: unlike the other binary levels below, a chain of assignment targets
// folds right so that `a = b = c` parses as `a = (b = c)`, per spec.md §4.1.
func (p *Parser) assign() ast.Expr {
	left := p.logicalOr()
	switch p.current().Kind {
	case token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN:
		tok := p.current()
		op := tok.Kind
		p.pos++
		right := p.assign()
		return &ast.Assignment{Token: tok, Operator: op, Target: left, Value: right}
	}
	return left
}

func (p *Parser) logicalOr() ast.Expr {
	left := p.logicalAnd()
	for p.current().Kind == token.OR {
		tok := p.current()
		p.pos++
		right := p.logicalAnd()
		left = &ast.BinaryOperation{Token: tok, Operator: token.OR, Left: left, Right: right}
	}
	return left
}

func (p *Parser) logicalAnd() ast.Expr {
	left := p.bitwiseOr()
	for p.current().Kind == token.AND {
		tok := p.current()
		p.pos++
		right := p.bitwiseOr()
		left = &ast.BinaryOperation{Token: tok, Operator: token.AND, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseOr() ast.Expr {
	left := p.bitwiseXor()
	for p.current().Kind == token.PIPE {
		tok := p.current()
		p.pos++
		right := p.bitwiseXor()
		left = &ast.BinaryOperation{Token: tok, Operator: token.PIPE, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseXor() ast.Expr {
	left := p.bitwiseAnd()
	for p.current().Kind == token.CARET {
		tok := p.current()
		p.pos++
		right := p.bitwiseAnd()
		left = &ast.BinaryOperation{Token: tok, Operator: token.CARET, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseAnd() ast.Expr {
	left := p.equality()
	for p.current().Kind == token.AMP {
		tok := p.current()
		p.pos++
		right := p.equality()
		left = &ast.BinaryOperation{Token: tok, Operator: token.AMP, Left: left, Right: right}
	}
	return left
}

func (p *Parser) equality() ast.Expr {
	left := p.relational()
	for p.current().Kind == token.EQ || p.current().Kind == token.NEQ {
		tok := p.current()
		p.pos++
		right := p.relational()
		left = &ast.BinaryOperation{Token: tok, Operator: tok.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) relational() ast.Expr {
	left := p.shift()
	for isRelational(p.current().Kind) {
		tok := p.current()
		p.pos++
		right := p.shift()
		left = &ast.BinaryOperation{Token: tok, Operator: tok.Kind, Left: left, Right: right}
	}
	return left
}

func isRelational(k token.Kind) bool {
	return k == token.LT || k == token.GT || k == token.LE || k == token.GE
}

func (p *Parser) shift() ast.Expr {
	left := p.addsub()
	for p.current().Kind == token.SHL || p.current().Kind == token.SHR {
		tok := p.current()
		p.pos++
		right := p.addsub()
		left = &ast.BinaryOperation{Token: tok, Operator: tok.Kind, Left: left, Right: right}
	}
	return left
}

// addsub := muldiv ( ('+'|'-') muldiv )*   // left-associative
func (p *Parser) addsub() ast.Expr {
	left := p.muldiv()
	for p.current().Kind == token.PLUS || p.current().Kind == token.MINUS {
		tok := p.current()
		p.pos++
		right := p.muldiv()
		left = &ast.BinaryOperation{Token: tok, Operator: tok.Kind, Left: left, Right: right}
	}
	return left
}

// muldiv := unary ( ('*'|'/'|'%') unary )*   // left-associative
//
// Open question (spec.md §9): the source grammar recurses on `number` for the right operand of
// `*`/`/`, which would forbid `a * f()` or `a * b`. That is preserved here as a historical
// artifact only in the DESIGN.md discussion; the parser itself recurses on `unary`, the
// documented fix, since forbidding identifiers on the right of `*` would reject ordinary
// arithmetic the rest of the spec's end-to-end scenarios rely on (§8 scenario 2).
func (p *Parser) muldiv() ast.Expr {
	left := p.unary()
	for p.current().Kind == token.STAR || p.current().Kind == token.SLASH || p.current().Kind == token.PERCENT {
		tok := p.current()
		p.pos++
		right := p.unary()
		left = &ast.BinaryOperation{Token: tok, Operator: tok.Kind, Left: left, Right: right}
	}
	return left
}

// unary := ('+'|'-'|'~'|'!'|'&'|'*') unary | postfix
func (p *Parser) unary() ast.Expr {
	switch p.current().Kind {
	case token.PLUS, token.MINUS, token.TILDE, token.NOT, token.AMP, token.STAR:
		tok := p.current()
		p.pos++
		operand := p.unary()
		return &ast.UnaryOperation{Token: tok, Operator: tok.Kind, Operand: operand}
	}
	return p.postfix()
}

// postfix := func_call
func (p *Parser) postfix() ast.Expr {
	return p.funcCall()
}

// func_call := atom ( '(' ( expr (',' expr)* )? ')' )?
func (p *Parser) funcCall() ast.Expr {
	tok := p.current()
	if tok.Kind == token.IDENTIFIER && p.next().Kind == token.LPAREN {
		name := tok.Text
		p.pos++
		p.accept(token.LPAREN)
		call := &ast.FunctionCall{Token: tok, Callee: name}
		if p.current().Kind != token.RPAREN {
			call.Arguments = append(call.Arguments, p.expr())
			for p.accept(token.COMMA) {
				call.Arguments = append(call.Arguments, p.expr())
			}
		}
		p.expect(token.RPAREN)
		return call
	}
	return p.atom()
}

// atom := number | character | string | identifier | unsafe_expr | '(' expr ')'
func (p *Parser) atom() ast.Expr {
	tok := p.current()
	switch tok.Kind {
	case token.INTEGER:
		p.pos++
		return &ast.IntegerLiteral{
			Token: tok,
			Value: parseIntLiteral(tok.Text),
			Type:  types.SimpleType{Identifier: types.Int},
		}
	case token.CHARACTER:
		p.pos++
		var v byte
		if len(tok.Text) > 0 {
			v = tok.Text[0]
		}
		return &ast.CharacterLiteral{Token: tok, Value: v}
	case token.STRING:
		p.pos++
		return &ast.StringLiteral{Token: tok, Value: tok.Text}
	case token.IDENTIFIER:
		p.pos++
		return &ast.Identifier{Token: tok, Name: tok.Text}
	case token.UNSAFE:
		p.pos++
		inner := p.unary()
		return &ast.UnsafeExpression{Token: tok, Inner: inner}
	case token.LPAREN:
		p.pos++
		e := p.expr()
		p.expect(token.RPAREN)
		return e
	}
	p.diags.Error(tok, "Expected expression, but got %q", tok.Text)
	p.pos++
	return &ast.IntegerLiteral{Token: tok, Type: types.SimpleType{Identifier: types.Int}}
}

// typeSpec := ('unsigned'|'signed')? ('char'|'short'|'int'|'long'|'void') '*'*
func (p *Parser) typeSpec() types.Type {
	unsigned := false
	switch p.current().Kind {
	case token.UNSIGNED:
		unsigned = true
		p.pos++
	case token.SIGNED:
		p.pos++
	}

	tok := p.current()
	var ident types.Identifier
	switch tok.Kind {
	case token.CHAR:
		ident = types.Char
	case token.SHORT:
		ident = types.Short
	case token.INT:
		ident = types.Int
	case token.LONG:
		ident = types.Long
	case token.VOID:
		ident = types.Void
	default:
		p.diags.Error(tok, "Expected type, but got %q", tok.Text)
		return types.SimpleType{Identifier: types.Int}
	}
	p.pos++

	base := types.SimpleType{Identifier: ident, IsUnsigned: unsigned}
	var t types.Type = base
	for p.accept(token.STAR) {
		t = types.Pointer{Pointee: t}
	}
	return t
}

func parseIntLiteral(s string) int64 {
	var v int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	return v
}
