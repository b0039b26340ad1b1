// Package audit checks a document against its invariants with a Mangle
// program. It is independent of the rules in package tracer: it only looks at
// the resulting values, so it can catch a rule that forgot a case.
package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"

	"qestudio/internal/input"
	"qestudio/internal/logging"
	"qestudio/internal/param"
	"qestudio/internal/tracer"
)

// Violation is one broken invariant.
type Violation struct {
	Rule    string
	Subject string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Subject)
}

// Auditor holds the analyzed program. It is safe to reuse across documents.
type Auditor struct {
	programInfo *analysis.ProgramInfo
	violation   ast.PredicateSym
}

// New parses and analyzes the invariant program.
func New() (*Auditor, error) {
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("failed to parse audit program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze audit program: %w", err)
	}
	a := &Auditor{programInfo: programInfo}
	for sym := range programInfo.Decls {
		if sym.Symbol == "violation" {
			a.violation = sym
		}
	}
	if a.violation.Symbol == "" {
		return nil, fmt.Errorf("audit program declares no violation predicate")
	}
	return a, nil
}

// Check audits d with a fresh Auditor.
func Check(d *input.Document) ([]Violation, error) {
	a, err := New()
	if err != nil {
		return nil, err
	}
	return a.Check(d)
}

// Check exports d as facts, evaluates the program and returns the violations
// sorted by rule, then subject.
func (a *Auditor) Check(d *input.Document) ([]Violation, error) {
	timer := logging.StartTimer(logging.CategoryAudit, "check "+d.ID)
	defer timer.Stop()

	store := factstore.NewSimpleInMemoryStore()
	facts, err := Facts(d)
	if err != nil {
		return nil, err
	}
	for _, f := range facts {
		store.Add(f)
	}

	stats, err := mengine.EvalProgramWithStats(a.programInfo, store)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate audit program: %w", err)
	}
	logging.AuditDebug("evaluated %d facts: %+v", len(facts), stats)

	var out []Violation
	err = store.GetFacts(ast.NewQuery(a.violation), func(atom ast.Atom) error {
		out = append(out, Violation{
			Rule:    strings.TrimPrefix(text(atom.Args[0]), "/"),
			Subject: text(atom.Args[1]),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rule != out[j].Rule {
			return out[i].Rule < out[j].Rule
		}
		return out[i].Subject < out[j].Subject
	})

	j := logging.JournalFor(d.ID)
	for _, v := range out {
		j.Violation(v.Rule, v.Subject)
	}
	if len(out) > 0 {
		logging.Audit("document %s: %d violations", d.ID, len(out))
	}
	return out, nil
}

// Facts exports d: document/1, active/1 once the rules run, value/3 and
// int_value/3 for user values, shadow/3 for rule-private values,
// langevin_family/1 for a Langevin ion_dynamics, species/1, atom_label/1 and
// count/2. Texts are lower case.
func Facts(d *input.Document) ([]ast.Atom, error) {
	var facts []ast.Atom
	add := func(pred string, args ...ast.BaseTerm) {
		facts = append(facts, ast.NewAtom(pred, args...))
	}

	add("document", ast.String(d.ID))
	if d.Active() {
		add("active", ast.String(d.ID))
	}
	for _, s := range d.Namelists() {
		nl := ast.String(s.Name())
		s.Each(func(k string, v param.Value) {
			add("value", nl, ast.String(k), ast.String(valueText(v)))
			if v.Kind() == param.Integer {
				add("int_value", nl, ast.String(k), ast.Number(int64(v.AsInteger())))
			}
			if s.Name() == "ions" && k == "ion_dynamics" && tracer.IsLangevin(v.AsCharacter()) {
				add("langevin_family", ast.String(valueText(v)))
			}
		})
		for _, k := range s.ShadowKeys() {
			add("shadow", nl, ast.String(string(k)), ast.String(valueText(s.GetShadow(k))))
		}
	}

	for _, l := range d.Species.Labels() {
		add("species", ast.String(l))
	}
	labels := d.Positions.Labels()
	for _, l := range labels {
		add("atom_label", ast.String(l))
	}

	counts := map[string]int{
		"/species": d.Species.Len(),
		"/labels":  len(labels),
		"/atoms":   d.Positions.Len(),
	}
	for name, n := range counts {
		sym, err := ast.Name(name)
		if err != nil {
			return nil, fmt.Errorf("bad count name %s: %w", name, err)
		}
		add("count", sym, ast.Number(int64(n)))
	}
	return facts, nil
}

func valueText(v param.Value) string {
	return strings.ToLower(strings.TrimSpace(v.AsCharacter()))
}

func text(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		return c.Symbol
	}
	return term.String()
}
