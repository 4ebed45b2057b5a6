package gridlate

import (
	"fmt"
	"strings"
)

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpPower
	BinOpConcat
	BinOpEqual
	BinOpNotEqual
	BinOpLess
	BinOpLessEqual
	BinOpGreater
	BinOpGreaterEqual
)

// String returns the operator's formula-syntax spelling.
func (op BinaryOp) String() string {
	switch op {
	case BinOpAdd:
		return "+"
	case BinOpSubtract:
		return "-"
	case BinOpMultiply:
		return "*"
	case BinOpDivide:
		return "/"
	case BinOpPower:
		return "^"
	case BinOpConcat:
		return "&"
	case BinOpEqual:
		return "="
	case BinOpNotEqual:
		return "<>"
	case BinOpLess:
		return "<"
	case BinOpLessEqual:
		return "<="
	case BinOpGreater:
		return ">"
	case BinOpGreaterEqual:
		return ">="
	}
	return "?"
}

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
	UnaryOpPercent // postfix
)

// Span marks a node's rune extent in the source formula.
type Span struct {
	Start int
	End   int
}

// Expr is the closed set of formula AST nodes. Each implementation
// exclusively owns its children; the parser never creates back-edges,
// so every tree is acyclic by construction. Consumers switch over the
// concrete types with no default fallthrough, so adding a node kind
// breaks emitters and classifiers loudly instead of silently.
type Expr interface {
	Pos() Span

	// Render writes the node back to formula syntax (without the
	// leading '='). Re-parsing the rendered text yields a
	// structurally identical tree, though not necessarily identical
	// source bytes.
	Render() string
}

// NumberLit is a numeric literal
type NumberLit struct {
	Value float64
	Span  Span
}

func (n *NumberLit) Pos() Span { return n.Span }

func (n *NumberLit) Render() string {
	return formatNumber(n.Value)
}

// formatNumber renders a float without trailing-zero artifacts.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// StringLit is a string literal
type StringLit struct {
	Value string
	Span  Span
}

func (n *StringLit) Pos() Span { return n.Span }

func (n *StringLit) Render() string {
	escaped := strings.ReplaceAll(n.Value, `"`, `""`)
	return `"` + escaped + `"`
}

// BoolLit is a TRUE/FALSE literal
type BoolLit struct {
	Value bool
	Span  Span
}

func (n *BoolLit) Pos() Span { return n.Span }

func (n *BoolLit) Render() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// CellRef references a single cell. Coord always carries a resolved
// sheet name by the time parsing finishes.
type CellRef struct {
	Coord CellCoordinate
	Span  Span
}

func (n *CellRef) Pos() Span { return n.Span }

func (n *CellRef) Render() string { return n.Coord.String() }

// RangeRef references a rectangular cell range.
type RangeRef struct {
	Range CellRange
	Span  Span
}

func (n *RangeRef) Pos() Span { return n.Span }

func (n *RangeRef) Render() string { return n.Range.String() }

// UnaryExpr applies a prefix +/- or postfix % operator.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Span    Span
}

func (n *UnaryExpr) Pos() Span { return n.Span }

func (n *UnaryExpr) Render() string {
	switch n.Op {
	case UnaryOpPlus:
		return "+" + n.Operand.Render()
	case UnaryOpMinus:
		return "-" + n.Operand.Render()
	case UnaryOpPercent:
		return n.Operand.Render() + "%"
	}
	return n.Operand.Render()
}

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Span  Span
}

func (n *BinaryExpr) Pos() Span { return n.Span }

func (n *BinaryExpr) Render() string {
	// explicit parens keep the rendered text precedence-stable
	return "(" + n.Left.Render() + n.Op.String() + n.Right.Render() + ")"
}

// CallExpr is a function call with ordered arguments. Name is stored
// uppercase; lookup into the function table is case-insensitive.
type CallExpr struct {
	Name string
	Args []Expr
	Span Span
}

func (n *CallExpr) Pos() Span { return n.Span }

func (n *CallExpr) Render() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.Render()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// GroupExpr is an explicitly parenthesized expression.
type GroupExpr struct {
	Inner Expr
	Span  Span
}

func (n *GroupExpr) Pos() Span { return n.Span }

func (n *GroupExpr) Render() string {
	return "(" + n.Inner.Render() + ")"
}

// Walk visits expr and every descendant in depth-first pre-order,
// stopping early if fn returns false.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch n := expr.(type) {
	case *NumberLit, *StringLit, *BoolLit, *CellRef, *RangeRef:
		// leaves
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *CallExpr:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *GroupExpr:
		Walk(n.Inner, fn)
	}
}

// Depth returns the maximum nesting depth of the tree, counting every
// node level including leaves.
func Depth(expr Expr) int {
	if expr == nil {
		return 0
	}
	max := 0
	switch n := expr.(type) {
	case *NumberLit, *StringLit, *BoolLit, *CellRef, *RangeRef:
	case *UnaryExpr:
		max = Depth(n.Operand)
	case *BinaryExpr:
		max = Depth(n.Left)
		if d := Depth(n.Right); d > max {
			max = d
		}
	case *CallExpr:
		for _, arg := range n.Args {
			if d := Depth(arg); d > max {
				max = d
			}
		}
	case *GroupExpr:
		max = Depth(n.Inner)
	}
	return max + 1
}
