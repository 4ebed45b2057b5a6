package gridlate

import "sort"

// FunctionSpec describes one translatable spreadsheet function: the
// JavaScript helper it compiles to and its arity constraints. MaxArgs
// of -1 means variadic.
type FunctionSpec struct {
	Name    string
	Helper  string
	MinArgs int
	MaxArgs int
	Core    bool
}

// Variadic marks a function accepting any number of trailing arguments.
const Variadic = -1

// functionTable holds every function the emitter can translate, keyed
// by upper-cased name. Core functions are the ones that do not count
// against a formula's complexity score.
var functionTable = map[string]FunctionSpec{
	"SUM":         {Name: "SUM", Helper: "_sum", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"AVERAGE":     {Name: "AVERAGE", Helper: "_average", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"MIN":         {Name: "MIN", Helper: "_min", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"MAX":         {Name: "MAX", Helper: "_max", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"COUNT":       {Name: "COUNT", Helper: "_count", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"COUNTA":      {Name: "COUNTA", Helper: "_counta", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"IF":          {Name: "IF", Helper: "_if", MinArgs: 2, MaxArgs: 3, Core: true},
	"AND":         {Name: "AND", Helper: "_and", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"OR":          {Name: "OR", Helper: "_or", MinArgs: 1, MaxArgs: Variadic, Core: true},
	"NOT":         {Name: "NOT", Helper: "_not", MinArgs: 1, MaxArgs: 1, Core: true},
	"ROUND":       {Name: "ROUND", Helper: "_round", MinArgs: 2, MaxArgs: 2, Core: true},
	"ROUNDUP":     {Name: "ROUNDUP", Helper: "_roundUp", MinArgs: 2, MaxArgs: 2, Core: false},
	"ROUNDDOWN":   {Name: "ROUNDDOWN", Helper: "_roundDown", MinArgs: 2, MaxArgs: 2, Core: false},
	"INT":         {Name: "INT", Helper: "_int", MinArgs: 1, MaxArgs: 1, Core: true},
	"ABS":         {Name: "ABS", Helper: "_abs", MinArgs: 1, MaxArgs: 1, Core: true},
	"LEN":         {Name: "LEN", Helper: "_len", MinArgs: 1, MaxArgs: 1, Core: true},
	"LEFT":        {Name: "LEFT", Helper: "_left", MinArgs: 1, MaxArgs: 2, Core: false},
	"RIGHT":       {Name: "RIGHT", Helper: "_right", MinArgs: 1, MaxArgs: 2, Core: false},
	"MID":         {Name: "MID", Helper: "_mid", MinArgs: 3, MaxArgs: 3, Core: false},
	"TRIM":        {Name: "TRIM", Helper: "_trim", MinArgs: 1, MaxArgs: 1, Core: false},
	"UPPER":       {Name: "UPPER", Helper: "_upper", MinArgs: 1, MaxArgs: 1, Core: false},
	"LOWER":       {Name: "LOWER", Helper: "_lower", MinArgs: 1, MaxArgs: 1, Core: false},
	"CONCATENATE": {Name: "CONCATENATE", Helper: "_concat", MinArgs: 1, MaxArgs: Variadic, Core: false},
	"CONCAT":      {Name: "CONCAT", Helper: "_concat", MinArgs: 1, MaxArgs: Variadic, Core: false},
	"TODAY":       {Name: "TODAY", Helper: "_today", MinArgs: 0, MaxArgs: 0, Core: false},
	"NOW":         {Name: "NOW", Helper: "_now", MinArgs: 0, MaxArgs: 0, Core: false},
}

// LookupFunction returns the spec for a function name, matched
// case-insensitively.
func LookupFunction(name string) (FunctionSpec, bool) {
	spec, exists := functionTable[toUpperASCII(name)]
	return spec, exists
}

// SupportedFunctions returns the names of every translatable function
// in sorted order.
func SupportedFunctions() []string {
	names := make([]string, 0, len(functionTable))
	for name := range functionTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// helperSources maps each emitted helper name to its JavaScript
// definition. Operator helpers (_num, _div, ...) live here alongside
// function helpers so the prelude can be assembled from one table.
var helperSources = map[string]string{
	"_num": `function _num(v) {
  if (v === null || v === undefined || v === '') return 0;
  if (typeof v === 'boolean') return v ? 1 : 0;
  var n = Number(v);
  return isNaN(n) ? 0 : n;
}`,
	"_div": `function _div(a, b) {
  var d = _num(b);
  if (d === 0) return '#DIV/0!';
  return _num(a) / d;
}`,
	"_pow": `function _pow(a, b) {
  return Math.pow(_num(a), _num(b));
}`,
	"_eq": `function _eq(a, b) {
  if (typeof a === 'string' && typeof b === 'string') {
    return a.toLowerCase() === b.toLowerCase();
  }
  return a === b;
}`,
	"_ne": `function _ne(a, b) {
  return !_eq(a, b);
}`,
	"_concat": `function _concat() {
  var out = '';
  for (var i = 0; i < arguments.length; i++) {
    var v = arguments[i];
    out += (v === null || v === undefined) ? '' : String(v);
  }
  return out;
}`,
	"_cells": `function _cells(data, sheet, start, end) {
  var m = /^([A-Z]+)([0-9]+)$/;
  var s = m.exec(start), e = m.exec(end);
  var colNum = function (name) {
    var n = 0;
    for (var i = 0; i < name.length; i++) n = n * 26 + (name.charCodeAt(i) - 64);
    return n;
  };
  var colName = function (n) {
    var out = '';
    while (n > 0) { n--; out = String.fromCharCode(65 + (n % 26)) + out; n = Math.floor(n / 26); }
    return out;
  };
  var out = [];
  for (var r = Number(s[2]); r <= Number(e[2]); r++) {
    for (var c = colNum(s[1]); c <= colNum(e[1]); c++) {
      var key = colName(c) + r;
      if (sheet !== '') key = sheet + '!' + key;
      out.push(data[key]);
    }
  }
  return out;
}`,
	"_flat": `function _flat(args) {
  var out = [];
  for (var i = 0; i < args.length; i++) {
    var v = args[i];
    if (Array.isArray(v)) { out = out.concat(v); } else { out.push(v); }
  }
  return out;
}`,
	"_sum": `function _sum() {
  var vals = _flat(arguments), total = 0;
  for (var i = 0; i < vals.length; i++) total += _num(vals[i]);
  return total;
}`,
	"_average": `function _average() {
  var vals = _flat(arguments), total = 0, n = 0;
  for (var i = 0; i < vals.length; i++) {
    var v = vals[i];
    if (v === null || v === undefined || v === '') continue;
    total += _num(v);
    n++;
  }
  return n === 0 ? '#DIV/0!' : total / n;
}`,
	"_min": `function _min() {
  var vals = _flat(arguments), best = null;
  for (var i = 0; i < vals.length; i++) {
    var v = vals[i];
    if (v === null || v === undefined || v === '') continue;
    var n = _num(v);
    if (best === null || n < best) best = n;
  }
  return best === null ? 0 : best;
}`,
	"_max": `function _max() {
  var vals = _flat(arguments), best = null;
  for (var i = 0; i < vals.length; i++) {
    var v = vals[i];
    if (v === null || v === undefined || v === '') continue;
    var n = _num(v);
    if (best === null || n > best) best = n;
  }
  return best === null ? 0 : best;
}`,
	"_count": `function _count() {
  var vals = _flat(arguments), n = 0;
  for (var i = 0; i < vals.length; i++) {
    var v = vals[i];
    if (v === null || v === undefined || v === '') continue;
    if (!isNaN(Number(v))) n++;
  }
  return n;
}`,
	"_counta": `function _counta() {
  var vals = _flat(arguments), n = 0;
  for (var i = 0; i < vals.length; i++) {
    var v = vals[i];
    if (v !== null && v !== undefined && v !== '') n++;
  }
  return n;
}`,
	"_if": `function _if(cond, whenTrue, whenFalse) {
  if (whenFalse === undefined) whenFalse = false;
  return cond ? whenTrue : whenFalse;
}`,
	"_and": `function _and() {
  var vals = _flat(arguments);
  for (var i = 0; i < vals.length; i++) {
    if (!vals[i]) return false;
  }
  return true;
}`,
	"_or": `function _or() {
  var vals = _flat(arguments);
  for (var i = 0; i < vals.length; i++) {
    if (vals[i]) return true;
  }
  return false;
}`,
	"_not": `function _not(v) {
  return !v;
}`,
	"_round": `function _round(v, places) {
  var f = Math.pow(10, _num(places));
  return Math.round(_num(v) * f) / f;
}`,
	"_roundUp": `function _roundUp(v, places) {
  var f = Math.pow(10, _num(places));
  var n = _num(v);
  return (n >= 0 ? Math.ceil(n * f) : Math.floor(n * f)) / f;
}`,
	"_roundDown": `function _roundDown(v, places) {
  var f = Math.pow(10, _num(places));
  var n = _num(v);
  return (n >= 0 ? Math.floor(n * f) : Math.ceil(n * f)) / f;
}`,
	"_int": `function _int(v) {
  return Math.floor(_num(v));
}`,
	"_abs": `function _abs(v) {
  return Math.abs(_num(v));
}`,
	"_len": `function _len(v) {
  return String(v === null || v === undefined ? '' : v).length;
}`,
	"_left": `function _left(v, n) {
  if (n === undefined) n = 1;
  return String(v === null || v === undefined ? '' : v).slice(0, _num(n));
}`,
	"_right": `function _right(v, n) {
  if (n === undefined) n = 1;
  var s = String(v === null || v === undefined ? '' : v);
  var k = _num(n);
  return k === 0 ? '' : s.slice(-k);
}`,
	"_mid": `function _mid(v, start, n) {
  var s = String(v === null || v === undefined ? '' : v);
  var from = _num(start) - 1;
  if (from < 0) from = 0;
  return s.slice(from, from + _num(n));
}`,
	"_trim": `function _trim(v) {
  return String(v === null || v === undefined ? '' : v).replace(/ +/g, ' ').trim();
}`,
	"_upper": `function _upper(v) {
  return String(v === null || v === undefined ? '' : v).toUpperCase();
}`,
	"_lower": `function _lower(v) {
  return String(v === null || v === undefined ? '' : v).toLowerCase();
}`,
	"_today": `function _today() {
  var d = new Date();
  return new Date(d.getFullYear(), d.getMonth(), d.getDate());
}`,
	"_now": `function _now() {
  return new Date();
}`,
}

// helperDeps lists helpers each helper's source calls, so the prelude
// for a subset of helpers always closes over its dependencies.
var helperDeps = map[string][]string{
	"_div":       {"_num"},
	"_pow":       {"_num"},
	"_ne":        {"_eq"},
	"_sum":       {"_flat", "_num"},
	"_average":   {"_flat", "_num"},
	"_min":       {"_flat", "_num"},
	"_max":       {"_flat", "_num"},
	"_count":     {"_flat"},
	"_counta":    {"_flat"},
	"_and":       {"_flat"},
	"_or":        {"_flat"},
	"_round":     {"_num"},
	"_roundUp":   {"_num"},
	"_roundDown": {"_num"},
	"_int":       {"_num"},
	"_abs":       {"_num"},
	"_left":      {"_num"},
	"_right":     {"_num"},
	"_mid":       {"_num"},
}

// HelperPrelude returns the JavaScript source for the given helpers
// plus everything they transitively call, one definition per helper,
// in sorted name order. Unknown names are ignored.
func HelperPrelude(helpers []string) string {
	need := make(map[string]bool)
	var add func(name string)
	add = func(name string) {
		if need[name] {
			return
		}
		if _, exists := helperSources[name]; !exists {
			return
		}
		need[name] = true
		for _, dep := range helperDeps[name] {
			add(dep)
		}
	}
	for _, name := range helpers {
		add(name)
	}

	names := make([]string, 0, len(need))
	for name := range need {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	for i, name := range names {
		if i > 0 {
			out = append(out, '\n', '\n')
		}
		out = append(out, helperSources[name]...)
	}
	return string(out)
}

// AllHelpers returns every helper name the emitter can reference, in
// sorted order.
func AllHelpers() []string {
	names := make([]string, 0, len(helperSources))
	for name := range helperSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

