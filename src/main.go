package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vslac/src/ast"
	"vslac/src/frontend"
	"vslac/src/lower"
	"vslac/src/parser"
)

// run carries out the fixed compilation pipeline spec.md §2 describes: token sequence →
// Parser → AST → Lowerer.preprocess → Lowerer.emit → IR, logging through log and writing the
// resulting textual IR to out.
func run(src, out string, verbose bool, log *zap.SugaredLogger) error {
	text, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	tokens, err := frontend.Lex(string(text))
	if err != nil {
		return fmt.Errorf("lexing: %w", err)
	}
	log.Debugw("lexed source", "tokens", len(tokens))

	p := parser.New(tokens)
	stmts, ok := p.Parse()
	if !ok {
		for _, e := range p.GetErrors() {
			fmt.Fprintln(os.Stderr, e.String())
		}
		return fmt.Errorf("parse failed with %d error(s)", len(p.GetErrors()))
	}

	ctx := lower.NewContext(src, log)
	defer ctx.Dispose()
	diagnostics := ctx.Diagnostics

	for _, s := range stmts {
		s.Preprocess(ctx, diagnostics)
	}
	for _, s := range stmts {
		if err := s.Lower(ctx, diagnostics); err != nil {
			fmt.Fprint(os.Stderr, diagnostics.String())
			return fmt.Errorf("lowering: %w", err)
		}
	}

	if diagnostics.HasErrors() {
		fmt.Fprint(os.Stderr, diagnostics.String())
		return fmt.Errorf("lowering reported %d error(s)", len(diagnostics.Errors()))
	}
	for _, w := range diagnostics.Warnings() {
		log.Warnw(w.Message, "token", w.Token.String())
	}

	if verbose {
		for _, s := range stmts {
			fmt.Println(renderStmt(s))
		}
	}

	ir := ctx.Module.String()
	if out == "" {
		fmt.Println(ir)
		return nil
	}
	return os.WriteFile(out, []byte(ir), 0644)
}

func renderStmt(s ast.Stmt) string {
	return s.Render(0)
}

func main() {
	var out string
	var verbose bool

	root := &cobra.Command{
		Use:   "vslac [source]",
		Short: "vslac lowers a small statically-typed C-like source file to LLVM IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(args[0], out, verbose, logger.Sugar())
		},
	}
	root.Flags().StringVarP(&out, "out", "o", "", "path to write the generated IR to (defaults to stdout)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the AST rendering after a successful lowering")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
