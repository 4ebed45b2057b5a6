package gridlate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FormulaEntry is one formula cell after translation: the parsed
// expression, its resolved dependencies, the emitted JavaScript, and
// the complexity verdict. Err is set when any stage failed; a failed
// entry still participates in the dependency graph with no edges.
type FormulaEntry struct {
	Coord      CellCoordinate
	Source     string
	Expr       Expr
	Deps       []CellCoordinate
	Truncated  bool
	Emission   EmissionResult
	Complexity Complexity
	Err        error
}

// FormulaFailure pairs a cell with the error that stopped its
// translation.
type FormulaFailure struct {
	Cell string
	Err  error
}

// TranslationResult is the outcome of translating a whole workbook.
type TranslationResult struct {
	RunID        string
	DefaultSheet string
	Entries      []*FormulaEntry
	Graph        *DependencyGraph
	Order        []CellCoordinate
	Cycles       []*CircularReferenceError
	Failures     []FormulaFailure
	Helpers      []string
}

// Workbook accumulates formulas and translates them as a unit.
type Workbook struct {
	cfg     Config
	log     *slog.Logger
	handler EventHandler

	mu       sync.Mutex
	formulas []pendingFormula
	seen     map[CoordKey]bool
}

type pendingFormula struct {
	sheet  string
	ref    string
	source string
}

// Option configures a Workbook.
type Option func(*Workbook)

// WithLogger sets the structured logger used during translation.
func WithLogger(log *slog.Logger) Option {
	return func(w *Workbook) { w.log = log }
}

// WithEventHandler adds a handler for run lifecycle events. May be
// given multiple times; handlers fire in registration order.
func WithEventHandler(h EventHandler) Option {
	return func(w *Workbook) {
		if w.handler == nil {
			w.handler = h
			return
		}
		if m, ok := w.handler.(multiHandler); ok {
			w.handler = append(m, h)
			return
		}
		w.handler = multiHandler{w.handler, h}
	}
}

// NewWorkbook creates an empty workbook with the given limits.
func NewWorkbook(cfg Config, opts ...Option) *Workbook {
	w := &Workbook{
		cfg:  cfg,
		log:  slog.Default(),
		seen: make(map[CoordKey]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddFormula registers the formula at sheet!ref for translation. The
// reference must be a plain cell like "B2"; the source may carry a
// leading '='. Registering the same cell twice replaces the earlier
// formula.
func (w *Workbook) AddFormula(sheet, ref, source string) error {
	coord, err := parseCellText(ref)
	if err != nil {
		return fmt.Errorf("cell %q: %w", ref, err)
	}
	coord.Sheet = sheet
	coord.ColAbs, coord.RowAbs = false, false

	w.mu.Lock()
	defer w.mu.Unlock()
	key := coord.Key()
	if w.seen[key] {
		for i := range w.formulas {
			if w.formulas[i].sheet == sheet && sameRef(w.formulas[i].ref, ref) {
				w.formulas[i].source = source
				return nil
			}
		}
	}
	w.seen[key] = true
	w.formulas = append(w.formulas, pendingFormula{sheet: sheet, ref: ref, source: source})
	return nil
}

func sameRef(a, b string) bool {
	ca, errA := parseCellText(a)
	cb, errB := parseCellText(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ca.Col == cb.Col && ca.Row == cb.Row
}

// Len returns the number of registered formulas.
func (w *Workbook) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.formulas)
}

func (w *Workbook) emitEvent(ev Event) {
	if w.handler != nil {
		w.handler.Handle(ev)
	}
}

// Translate parses, resolves, and emits every registered formula,
// builds the dependency graph, and computes the evaluation order.
// Per-formula failures are collected rather than aborting the run;
// ctx cancellation stops the parse stage early.
func (w *Workbook) Translate(ctx context.Context) (*TranslationResult, error) {
	w.mu.Lock()
	pending := make([]pendingFormula, len(w.formulas))
	copy(pending, w.formulas)
	w.mu.Unlock()

	runID := uuid.NewString()
	log := w.log.With("run_id", runID)
	log.Info("translation started", "formulas", len(pending))
	w.emitEvent(newEvent(EventRunStarted, runID).WithPayload("formulas", len(pending)))

	entries := make([]*FormulaEntry, len(pending))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range w.cfg.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				entries[idx] = w.translateOne(pending[idx])
			}
		}()
	}

feed:
	for idx := range pending {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("translation canceled: %w", err)
	}

	result := &TranslationResult{RunID: runID, DefaultSheet: w.cfg.defaultSheet(), Entries: entries}
	helperSet := make(map[string]bool)
	for _, entry := range entries {
		cell := entry.Coord.String()
		if entry.Err != nil {
			result.Failures = append(result.Failures, FormulaFailure{Cell: cell, Err: entry.Err})
			log.Warn("formula failed", "cell", cell, "error", entry.Err)
			w.emitEvent(newEvent(EventFormulaFailed, runID).WithCell(cell).WithErr(entry.Err))
			continue
		}
		for _, h := range entry.Emission.Helpers {
			helperSet[h] = true
		}
		w.emitEvent(newEvent(EventFormulaParsed, runID).WithCell(cell).
			WithPayload("deps", len(entry.Deps)).
			WithPayload("complex", entry.Complexity.Complex))
	}
	for h := range helperSet {
		result.Helpers = append(result.Helpers, h)
	}
	sort.Strings(result.Helpers)

	result.Graph = BuildGraph(entries)
	result.Cycles = result.Graph.Cycles()
	for _, cyc := range result.Cycles {
		log.Warn("circular reference", "cycle", cyc.Error())
		w.emitEvent(newEvent(EventCycleDetected, runID).WithErr(cyc))
	}

	if len(result.Cycles) == 0 {
		order, err := result.Graph.EvaluationOrder()
		if err != nil {
			return nil, err
		}
		result.Order = order
	}

	log.Info("translation finished",
		"translated", len(entries)-len(result.Failures),
		"failed", len(result.Failures),
		"cycles", len(result.Cycles))
	w.emitEvent(newEvent(EventRunFinished, runID).
		WithPayload("failed", len(result.Failures)).
		WithPayload("cycles", len(result.Cycles)))

	return result, nil
}

func (w *Workbook) translateOne(p pendingFormula) *FormulaEntry {
	coord, _ := parseCellText(p.ref)
	coord.Sheet = p.sheet
	coord.ColAbs, coord.RowAbs = false, false
	entry := &FormulaEntry{Coord: coord, Source: p.source}

	expr, err := ParseFormula(p.source, p.sheet)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Expr = expr

	resolver := NewResolver(w.cfg)
	deps, truncated, err := resolver.Dependencies(expr)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Deps = deps
	entry.Truncated = truncated

	entry.Emission = Emit(expr, DataMapNamer{ContextSheet: w.cfg.defaultSheet()})
	entry.Complexity = Classify(expr, p.sheet, w.cfg)
	return entry
}

// CalculationScript renders the whole result as one JavaScript
// function. The function takes a data object keyed by cell reference,
// evaluates every translated formula in dependency order, writes each
// value back into the object, and returns it. Cells that failed
// translation are skipped with a comment.
func (r *TranslationResult) CalculationScript() string {
	byKey := make(map[CoordKey]*FormulaEntry, len(r.Entries))
	for _, entry := range r.Entries {
		byKey[entry.Coord.Key()] = entry
	}

	namer := DataMapNamer{ContextSheet: r.DefaultSheet}
	var b strings.Builder
	prelude := HelperPrelude(r.Helpers)
	if prelude != "" {
		b.WriteString(prelude)
		b.WriteString("\n\n")
	}
	b.WriteString("function calculate(data) {\n")

	writeEntry := func(entry *FormulaEntry) {
		target := namer.Cell(entry.Coord)
		if entry.Err != nil || !entry.Emission.Translatable {
			fmt.Fprintf(&b, "  // %s: not translated (%s)\n",
				entry.Coord.String(), untranslatedReason(entry))
			return
		}
		fmt.Fprintf(&b, "  %s = %s;\n", target, entry.Emission.JS)
	}

	if len(r.Order) > 0 {
		for _, coord := range r.Order {
			entry, isFormula := byKey[coord.Key()]
			if !isFormula {
				continue
			}
			writeEntry(entry)
		}
	} else {
		// no safe order; emit in coordinate order
		sorted := make([]*FormulaEntry, len(r.Entries))
		copy(sorted, r.Entries)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Coord.Less(sorted[j].Coord)
		})
		for _, entry := range sorted {
			writeEntry(entry)
		}
	}

	b.WriteString("  return data;\n}\n")
	return b.String()
}

func untranslatedReason(entry *FormulaEntry) string {
	if entry.Err != nil {
		return entry.Err.Error()
	}
	if len(entry.Emission.Untranslatable) > 0 {
		return "unsupported: " + strings.Join(entry.Emission.Untranslatable, ", ")
	}
	return "unknown"
}
