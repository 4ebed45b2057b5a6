package gridlate

import (
	"fmt"
	"sort"
	"strings"
)

// Namer maps cell and range references to the JavaScript expressions
// that read them at runtime.
type Namer interface {
	Cell(c CellCoordinate) string
	Range(r CellRange) string
}

// DataMapNamer renders references as lookups into a flat data object,
// data['A1'], with cross-sheet references qualified as
// data['Sheet2!C3']. The zero value uses "data" as the object name.
type DataMapNamer struct {
	// Object is the JavaScript identifier holding cell values.
	// Empty means "data".
	Object string

	// ContextSheet is the sheet owning the formula being emitted.
	// References to it stay unqualified.
	ContextSheet string
}

func (n DataMapNamer) object() string {
	if n.Object == "" {
		return "data"
	}
	return n.Object
}

func (n DataMapNamer) Cell(c CellCoordinate) string {
	key := ColumnName(c.Col) + fmt.Sprintf("%d", c.Row+1)
	if c.Sheet != "" && c.Sheet != n.ContextSheet {
		key = c.Sheet + "!" + key
	}
	return n.object() + "['" + escapeJSString(key) + "']"
}

func (n DataMapNamer) Range(r CellRange) string {
	norm := r.Normalize()
	sheet := norm.Start.Sheet
	if sheet == n.ContextSheet {
		sheet = ""
	}
	start := ColumnName(norm.Start.Col) + fmt.Sprintf("%d", norm.Start.Row+1)
	end := ColumnName(norm.End.Col) + fmt.Sprintf("%d", norm.End.Row+1)
	return fmt.Sprintf("_cells(%s, '%s', '%s', '%s')",
		n.object(), escapeJSString(sheet), start, end)
}

// EmissionResult is the outcome of translating one formula expression
// to JavaScript. When Translatable is false JS is empty and
// Untranslatable names the constructs that blocked translation.
type EmissionResult struct {
	JS             string
	Helpers        []string
	Translatable   bool
	Untranslatable []string
}

// binaryHelpers maps operators that cannot be rendered as raw
// JavaScript operators to the helper that preserves their semantics.
var binaryHelpers = map[BinaryOp]string{
	BinOpDivide:   "_div",
	BinOpPower:    "_pow",
	BinOpEqual:    "_eq",
	BinOpNotEqual: "_ne",
	BinOpConcat:   "_concat",
}

// jsComparisons maps comparison operators that translate directly.
var jsComparisons = map[BinaryOp]string{
	BinOpLess:         "<",
	BinOpLessEqual:    "<=",
	BinOpGreater:      ">",
	BinOpGreaterEqual: ">=",
}

// Emit translates a parsed formula expression to a JavaScript
// expression. The output is byte deterministic: the same expression
// and namer always produce the same string.
func Emit(expr Expr, namer Namer) EmissionResult {
	e := &emitter{namer: namer, helpers: make(map[string]bool)}
	js := e.emit(expr)

	if len(e.untranslatable) > 0 {
		sort.Strings(e.untranslatable)
		return EmissionResult{Untranslatable: dedupeStrings(e.untranslatable)}
	}

	helpers := make([]string, 0, len(e.helpers))
	for name := range e.helpers {
		helpers = append(helpers, name)
	}
	sort.Strings(helpers)

	return EmissionResult{JS: js, Helpers: helpers, Translatable: true}
}

type emitter struct {
	namer          Namer
	helpers        map[string]bool
	untranslatable []string
}

func (e *emitter) need(helper string) string {
	e.helpers[helper] = true
	for _, dep := range helperDeps[helper] {
		e.helpers[dep] = true
	}
	return helper
}

func (e *emitter) emit(expr Expr) string {
	switch node := expr.(type) {
	case *NumberLit:
		return formatNumber(node.Value)

	case *StringLit:
		return "'" + escapeJSString(node.Value) + "'"

	case *BoolLit:
		if node.Value {
			return "true"
		}
		return "false"

	case *CellRef:
		return e.namer.Cell(node.Coord)

	case *RangeRef:
		e.need("_cells")
		return e.namer.Range(node.Range)

	case *GroupExpr:
		return "(" + e.emit(node.Inner) + ")"

	case *UnaryExpr:
		operand := e.emit(node.Operand)
		switch node.Op {
		case UnaryOpPlus:
			return "(+" + e.wrapNum(operand) + ")"
		case UnaryOpMinus:
			return "(-" + e.wrapNum(operand) + ")"
		case UnaryOpPercent:
			return "(" + e.wrapNum(operand) + " * 0.01)"
		}
		return operand

	case *BinaryExpr:
		return e.emitBinary(node)

	case *CallExpr:
		return e.emitCall(node)
	}

	e.untranslatable = append(e.untranslatable, fmt.Sprintf("%T", expr))
	return ""
}

func (e *emitter) wrapNum(operand string) string {
	return e.need("_num") + "(" + operand + ")"
}

func (e *emitter) emitBinary(node *BinaryExpr) string {
	left := e.emit(node.Left)
	right := e.emit(node.Right)

	if helper, exists := binaryHelpers[node.Op]; exists {
		return e.need(helper) + "(" + left + ", " + right + ")"
	}
	if op, exists := jsComparisons[node.Op]; exists {
		return "(" + left + " " + op + " " + right + ")"
	}

	// add, subtract, multiply: coerce both sides
	return "(" + e.wrapNum(left) + " " + node.Op.String() + " " + e.wrapNum(right) + ")"
}

func (e *emitter) emitCall(node *CallExpr) string {
	spec, exists := LookupFunction(node.Name)
	if !exists {
		e.untranslatable = append(e.untranslatable, toUpperASCII(node.Name))
		for _, arg := range node.Args {
			e.emit(arg)
		}
		return ""
	}
	if len(node.Args) < spec.MinArgs || (spec.MaxArgs != Variadic && len(node.Args) > spec.MaxArgs) {
		e.untranslatable = append(e.untranslatable,
			fmt.Sprintf("%s with %d argument(s)", spec.Name, len(node.Args)))
		for _, arg := range node.Args {
			e.emit(arg)
		}
		return ""
	}

	args := make([]string, len(node.Args))
	for i, arg := range node.Args {
		args[i] = e.emit(arg)
	}
	return e.need(spec.Helper) + "(" + strings.Join(args, ", ") + ")"
}

func escapeJSString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dedupeStrings(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
