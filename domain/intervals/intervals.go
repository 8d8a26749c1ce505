// Package intervals is a concrete domain.Domain: one closed interval per
// tracked variable, unbounded on either side. It exists primarily to
// exercise the engine end to end and is intentionally not relational: it
// cannot express x<y, only independent per-variable ranges.
package intervals

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"interfwd/domain"
	"interfwd/ir"
)

const (
	negInf = math.MinInt64
	posInf = math.MaxInt64
)

// Interval is a closed range [Lo, Hi]; Lo == negInf / Hi == posInf stand
// for unbounded ends.
type Interval struct {
	Lo, Hi int64
}

func top() Interval          { return Interval{negInf, posInf} }
func point(v int64) Interval { return Interval{v, v} }

func (i Interval) isBottom() bool { return i.Lo > i.Hi }

func (i Interval) leq(o Interval) bool {
	return o.Lo <= i.Lo && i.Hi <= o.Hi
}

func (i Interval) join(o Interval) Interval {
	return Interval{minI64(i.Lo, o.Lo), maxI64(i.Hi, o.Hi)}
}

func (i Interval) meet(o Interval) Interval {
	return Interval{maxI64(i.Lo, o.Lo), minI64(i.Hi, o.Hi)}
}

func (i Interval) widen(o Interval) Interval {
	lo, hi := i.Lo, i.Hi
	if o.Lo < i.Lo {
		lo = negInf
	}
	if o.Hi > i.Hi {
		hi = posInf
	}
	return Interval{lo, hi}
}

func (i Interval) narrow(o Interval) Interval {
	lo, hi := i.Lo, i.Hi
	if lo == negInf {
		lo = o.Lo
	}
	if hi == posInf {
		hi = o.Hi
	}
	return Interval{lo, hi}
}

func (i Interval) String() string {
	lo := "-inf"
	if i.Lo != negInf {
		lo = fmt.Sprintf("%d", i.Lo)
	}
	hi := "+inf"
	if i.Hi != posInf {
		hi = fmt.Sprintf("%d", i.Hi)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func addSat(a, b int64) int64 {
	if a == negInf || b == negInf {
		return negInf
	}
	if a == posInf || b == posInf {
		return posInf
	}
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return posInf
		}
		return negInf
	}
	return sum
}

func negSat(a int64) int64 {
	switch a {
	case negInf:
		return posInf
	case posInf:
		return negInf
	default:
		return -a
	}
}

func mulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == negInf || a == posInf || b == negInf || b == posInf {
		if (a < 0) != (b < 0) {
			return negInf
		}
		return posInf
	}
	hi := int64(math.MaxInt64 / 2)
	if a > hi || a < -hi || b > hi || b < -hi {
		if (a < 0) != (b < 0) {
			return negInf
		}
		return posInf
	}
	return a * b
}

// Env is the concrete domain.Domain: a total (conceptually) map from
// variable to Interval, with a separate bottom flag since an empty map
// legitimately means "no variables tracked yet", not unreachable.
type Env struct {
	vals   map[ir.Var]Interval
	bottom bool
}

func newEnv() *Env { return &Env{vals: make(map[ir.Var]Interval)} }

func bottomEnv() *Env { return &Env{vals: make(map[ir.Var]Interval), bottom: true} }

func (e *Env) get(v ir.Var) Interval {
	if iv, ok := e.vals[v]; ok {
		return iv
	}
	return top()
}

func (e *Env) Clone() domain.Domain {
	out := &Env{vals: make(map[ir.Var]Interval, len(e.vals)), bottom: e.bottom}
	for k, v := range e.vals {
		out.vals[k] = v
	}
	return out
}

func (e *Env) IsBottom() bool { return e.bottom }

func (e *Env) IsTop() bool {
	if e.bottom {
		return false
	}
	for _, iv := range e.vals {
		if iv != top() {
			return false
		}
	}
	return true
}

func (e *Env) Leq(other domain.Domain) bool {
	o := other.(*Env)
	if e.bottom {
		return true
	}
	if o.bottom {
		return false
	}
	for v := range union(e, o) {
		if !e.get(v).leq(o.get(v)) {
			return false
		}
	}
	return true
}

func union(a, b *Env) map[ir.Var]struct{} {
	out := make(map[ir.Var]struct{}, len(a.vals)+len(b.vals))
	for v := range a.vals {
		out[v] = struct{}{}
	}
	for v := range b.vals {
		out[v] = struct{}{}
	}
	return out
}

func (e *Env) combine(other domain.Domain, op func(a, b Interval) Interval) domain.Domain {
	o := other.(*Env)
	if e.bottom {
		return o.Clone()
	}
	if o.bottom {
		return e.Clone()
	}
	out := newEnv()
	for v := range union(e, o) {
		out.vals[v] = op(e.get(v), o.get(v))
	}
	return out
}

func (e *Env) Join(other domain.Domain) domain.Domain {
	return e.combine(other, Interval.join)
}

func (e *Env) Meet(other domain.Domain) domain.Domain {
	result := e.combine(other, Interval.meet)
	out := result.(*Env)
	for _, iv := range out.vals {
		if iv.isBottom() {
			return bottomEnv()
		}
	}
	return out
}

func (e *Env) Widening(other domain.Domain) domain.Domain {
	return e.combine(other, Interval.widen)
}

// Narrowing must never rise above the receiver, so a bottom receiver
// stays bottom rather than taking combine's join-oriented bottom
// shortcut (which would resurrect other).
func (e *Env) Narrowing(other domain.Domain) domain.Domain {
	if e.bottom {
		return e.Clone()
	}
	return e.combine(other, Interval.narrow)
}

// WideningWithThresholds is the jump-set variant of Widening: an unstable
// bound jumps to the nearest enclosing threshold instead of straight to
// infinity, falling back to infinity once no threshold encloses it. Each
// bound moves strictly outward through a finite threshold set, so the
// ascending sequence still stabilizes.
func (e *Env) WideningWithThresholds(other domain.Domain, thresholds []int64) domain.Domain {
	return e.combine(other, func(a, b Interval) Interval {
		lo, hi := a.Lo, a.Hi
		if b.Lo < a.Lo {
			lo = thresholdAtMost(thresholds, b.Lo)
		}
		if b.Hi > a.Hi {
			hi = thresholdAtLeast(thresholds, b.Hi)
		}
		return Interval{lo, hi}
	})
}

// thresholdAtMost returns the largest threshold <= v, or negInf if none.
func thresholdAtMost(thresholds []int64, v int64) int64 {
	best := int64(negInf)
	for _, t := range thresholds {
		if t <= v && t > best {
			best = t
		}
	}
	return best
}

// thresholdAtLeast returns the smallest threshold >= v, or posInf if none.
func thresholdAtLeast(thresholds []int64, v int64) int64 {
	best := int64(posInf)
	for _, t := range thresholds {
		if t >= v && t < best {
			best = t
		}
	}
	return best
}

func (e *Env) eval(expr ir.Expr) Interval {
	switch x := expr.(type) {
	case ir.VarExpr:
		return e.get(x.Name)
	case ir.ConstExpr:
		return point(x.Value)
	case ir.UnaryExpr:
		inner := e.eval(x.Operand)
		if x.Op == "-" {
			return Interval{negSat(inner.Hi), negSat(inner.Lo)}
		}
		return top()
	case ir.BinExpr:
		l, r := e.eval(x.Left), e.eval(x.Right)
		switch x.Op {
		case "+":
			return Interval{addSat(l.Lo, r.Lo), addSat(l.Hi, r.Hi)}
		case "-":
			return Interval{addSat(l.Lo, negSat(r.Hi)), addSat(l.Hi, negSat(r.Lo))}
		case "*":
			products := []int64{
				mulSat(l.Lo, r.Lo), mulSat(l.Lo, r.Hi),
				mulSat(l.Hi, r.Lo), mulSat(l.Hi, r.Hi),
			}
			lo, hi := products[0], products[0]
			for _, p := range products[1:] {
				lo, hi = minI64(lo, p), maxI64(hi, p)
			}
			return Interval{lo, hi}
		default:
			return top()
		}
	default:
		return top()
	}
}

func (e *Env) Assign(result ir.Var, value ir.Expr) domain.Domain {
	if e.bottom {
		return e.Clone()
	}
	out := e.Clone().(*Env)
	out.vals[result] = e.eval(value)
	return out
}

func (e *Env) Assume(cond ir.Expr) domain.Domain {
	if e.bottom {
		return e.Clone()
	}
	out := e.Clone().(*Env)
	if !out.tighten(cond) {
		return bottomEnv()
	}
	return out
}

// tighten applies cond's constraint in place, returning false if the
// result is provably unsatisfiable. Patterns it cannot solve (relational
// operators between two non-constant expressions, arbitrary boolean
// connectives) are left unconstrained: this only loses precision, it
// never loses soundness.
func (e *Env) tighten(cond ir.Expr) bool {
	switch c := cond.(type) {
	case ir.UnaryExpr:
		if c.Op == "!" {
			return e.tighten(ir.Negate(c.Operand))
		}
		return true
	case ir.BinExpr:
		if v, konst, op, ok := asVarConst(c); ok {
			current := e.get(v)
			tightened, sat := applyRel(current, op, konst)
			if !sat || tightened.isBottom() {
				return false
			}
			e.vals[v] = tightened
			return true
		}
		return true
	default:
		return true
	}
}

// asVarConst recognizes "var OP const" or "const OP var" and normalizes to
// (var, const, op) with op already re-oriented so var is always the left
// operand.
func asVarConst(b ir.BinExpr) (ir.Var, int64, string, bool) {
	flip := map[string]string{"<": ">", "<=": ">=", ">": "<", ">=": "<=", "==": "==", "!=": "!="}
	if v, ok := b.Left.(ir.VarExpr); ok {
		if k, ok := b.Right.(ir.ConstExpr); ok {
			return v.Name, k.Value, b.Op, true
		}
	}
	if v, ok := b.Right.(ir.VarExpr); ok {
		if k, ok := b.Left.(ir.ConstExpr); ok {
			if flipped, ok := flip[b.Op]; ok {
				return v.Name, k.Value, flipped, true
			}
		}
	}
	return "", 0, "", false
}

func applyRel(cur Interval, op string, k int64) (Interval, bool) {
	switch op {
	case "<":
		return cur.meet(Interval{negInf, k - 1}), true
	case "<=":
		return cur.meet(Interval{negInf, k}), true
	case ">":
		return cur.meet(Interval{k + 1, posInf}), true
	case ">=":
		return cur.meet(Interval{k, posInf}), true
	case "==":
		return cur.meet(point(k)), true
	case "!=":
		return cur, true
	default:
		return cur, true
	}
}

func (e *Env) Havoc(vars []ir.Var) domain.Domain {
	if e.bottom {
		return e.Clone()
	}
	out := e.Clone().(*Env)
	for _, v := range vars {
		out.vals[v] = top()
	}
	return out
}

func (e *Env) Forget(vars []ir.Var) domain.Domain {
	out := e.Clone().(*Env)
	for _, v := range vars {
		delete(out.vals, v)
	}
	return out
}

func (e *Env) Project(vars []ir.Var) domain.Domain {
	keep := make(map[ir.Var]struct{}, len(vars))
	for _, v := range vars {
		keep[v] = struct{}{}
	}
	out := newEnv()
	out.bottom = e.bottom
	for v := range keep {
		out.vals[v] = e.get(v)
	}
	return out
}

func (e *Env) Expand(from, to ir.Var) domain.Domain {
	out := e.Clone().(*Env)
	out.vals[to] = e.get(from)
	return out
}

func (e *Env) Rename(from, to []ir.Var) domain.Domain {
	out := e.Clone().(*Env)
	olds := make([]Interval, len(from))
	for i, f := range from {
		olds[i] = out.get(f)
		delete(out.vals, f)
	}
	for i, t := range to {
		out.vals[t] = olds[i]
	}
	return out
}

// Vars lists every variable this Env currently tracks. Not part of
// domain.Domain; callers that want to strip shadow variables from a final
// result type-assert for this optional capability rather than the core
// requiring every domain to expose its support set.
func (e *Env) Vars() []ir.Var {
	out := make([]ir.Var, 0, len(e.vals))
	for v := range e.vals {
		out = append(out, v)
	}
	return out
}

func (e *Env) String() string {
	if e.bottom {
		return "_|_"
	}
	names := make([]string, 0, len(e.vals))
	for v := range e.vals {
		names = append(names, string(v))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, e.vals[ir.Var(n)]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Factory is the domain.Factory for Env values.
type Factory struct{}

func (Factory) Top() domain.Domain    { return newEnv() }
func (Factory) Bottom() domain.Domain { return bottomEnv() }

// Entry seeds an analysis with every formal parameter unconstrained and
// nothing else tracked; callers that want a narrower starting assumption
// (e.g. a known argument range) Assign over the result before use.
func (Factory) Entry(decl *ir.FuncDecl) domain.Domain {
	env := newEnv()
	for _, p := range decl.Params {
		env.vals[p] = top()
	}
	return env
}
