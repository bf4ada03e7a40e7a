package types

import "fmt"

// ParseResult holds the declarations found in one Go source file. A file
// with syntax errors may still carry the symbols of its partial AST.
type ParseResult struct {
	FilePath    string
	PackageName string
	Symbols     []Symbol
	Errors      []ParseError
}

// ParseError is one syntax error, positioned in the file
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (pe *ParseError) Error() string {
	if pe.Line == 0 {
		return fmt.Sprintf("%s: %s", pe.File, pe.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", pe.File, pe.Line, pe.Column, pe.Message)
}

// HasErrors reports whether the file failed to parse cleanly
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError records a syntax error at line:col of the result's file
func (pr *ParseResult) AddError(line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    pr.FilePath,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}
