// Package average computes weighted term, partial and final averages for one
// subject from a snapshot of grades and reinforcement grades. It performs no
// I/O and keeps no state between calls.
package average

import (
	"fmt"
	"math"
)

// Config parameterises a Calculator.
type Config struct {
	// Mode defaults to ModeSum.
	Mode Mode
	// Groups are the partial-average buckets, in display order.
	Groups []Group
	// TermOrder fixes the order of per-term entries; unknown terms follow in
	// first-seen order.
	TermOrder []string
	// Rounding is applied by Display only. Defaults to Round2.
	Rounding func(float64) float64
	// Unweighted reports per-term averages only. Weights and groups are
	// ignored and no ave_factor, partial or final average is produced.
	Unweighted bool
}

// Calculator computes averages for one subject at a time. A Calculator is
// immutable once built and safe for concurrent use.
type Calculator struct {
	mode       Mode
	groups     []Group
	termOrder  []string
	rounding   func(float64) float64
	unweighted bool
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// New validates cfg and builds a Calculator.
func New(cfg Config) (*Calculator, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeSum
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	configured := cfg.Groups
	if cfg.Unweighted {
		configured = nil
	}
	groups := make([]Group, 0, len(configured))
	for i, g := range configured {
		if len(g.Terms) == 0 {
			return nil, fmt.Errorf("%w: group %d has no terms", ErrInvalidInput, i+1)
		}
		name := g.Name
		if name == "" {
			name = fmt.Sprintf("partial_%d", i+1)
		}
		terms := make([]string, len(g.Terms))
		copy(terms, g.Terms)
		groups = append(groups, Group{Name: name, Terms: terms})
	}
	rounding := cfg.Rounding
	if rounding == nil {
		rounding = Round2
	}
	order := make([]string, len(cfg.TermOrder))
	copy(order, cfg.TermOrder)
	return &Calculator{mode: mode, groups: groups, termOrder: order, rounding: rounding, unweighted: cfg.Unweighted}, nil
}

// ComputeAverages is a one-shot helper around New and Compute.
func ComputeAverages(students []Student, grades []GradeRecord, reinforcements []ReinforcementGrade, weights Weights, subjectID int, cfg Config) (*Result, error) {
	calc, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return calc.Compute(students, grades, reinforcements, weights, subjectID), nil
}

// Mode returns the configured final-average mode.
func (c *Calculator) Mode() Mode {
	return c.mode
}

// Unweighted reports whether the calculator produces per-term averages only.
func (c *Calculator) Unweighted() bool {
	return c.unweighted
}

type termAcc struct {
	sum        float64
	count      int
	reinforced bool
}

func (a *termAcc) add(v float64) {
	a.sum += v
	a.count++
}

// Compute averages every student of the roster for subjectID. Absent data
// never contributes; malformed records and unusable weights are skipped and
// reported on Result.Diagnostics.
func (c *Calculator) Compute(students []Student, grades []GradeRecord, reinforcements []ReinforcementGrade, weights Weights, subjectID int) *Result {
	var diags diagnostics

	valid := make(map[string]float64, len(weights))
	rejected := make(map[string]bool)
	if c.unweighted {
		weights = nil
	}
	for _, term := range weights.SortedTerms() {
		w := weights[term]
		if msg, ok := checkWeight(w); !ok {
			rejected[term] = true
			diags.add(Diagnostic{Kind: KindInvalidWeight, Term: term, Message: msg})
			continue
		}
		valid[term] = w
	}

	buckets := len(valid)
	if len(c.groups) > 0 {
		buckets = len(c.groups)
	}

	roster := make([]Student, 0, len(students))
	known := make(map[int]struct{}, len(students))
	for _, s := range students {
		if s.ID <= 0 {
			diags.add(Diagnostic{Kind: KindInvalidInput, Message: fmt.Sprintf("student %q has no id", s.Name)})
			continue
		}
		if _, dup := known[s.ID]; dup {
			diags.add(Diagnostic{Kind: KindInvalidInput, StudentID: s.ID, Message: "duplicate student id"})
			continue
		}
		known[s.ID] = struct{}{}
		roster = append(roster, s)
	}

	acc := make(map[int]map[string]*termAcc, len(roster))
	var seen []string
	seenSet := make(map[string]struct{})
	slot := func(studentID int, term string) *termAcc {
		terms, ok := acc[studentID]
		if !ok {
			terms = make(map[string]*termAcc)
			acc[studentID] = terms
		}
		a, ok := terms[term]
		if !ok {
			a = &termAcc{}
			terms[term] = a
		}
		if _, ok := seenSet[term]; !ok {
			seenSet[term] = struct{}{}
			seen = append(seen, term)
		}
		return a
	}

	matched := false
	for _, rec := range grades {
		if rec.SubjectID != subjectID {
			continue
		}
		matched = true
		if _, ok := known[rec.StudentID]; !ok {
			diags.add(Diagnostic{Kind: KindInvalidInput, StudentID: rec.StudentID, Message: "grade record for unknown student"})
			continue
		}
		for _, tg := range rec.Terms {
			if tg.Term == "" {
				diags.add(Diagnostic{Kind: KindInvalidInput, StudentID: rec.StudentID, Message: "grade term without name"})
				continue
			}
			for _, g := range tg.Grades {
				if !g.Grade.Valid {
					continue
				}
				slot(rec.StudentID, tg.Term).add(g.Grade.Value)
			}
		}
	}

	for _, r := range reinforcements {
		if r.SubjectID != subjectID {
			continue
		}
		matched = true
		if _, ok := known[r.StudentID]; !ok {
			diags.add(Diagnostic{Kind: KindInvalidInput, StudentID: r.StudentID, Message: "reinforcement grade for unknown student"})
			continue
		}
		if r.Term == "" {
			diags.add(Diagnostic{Kind: KindInvalidInput, StudentID: r.StudentID, Message: fmt.Sprintf("reinforcement grade %q has no term", r.Label)})
			continue
		}
		if !r.Grade.Valid {
			continue
		}
		a := slot(r.StudentID, r.Term)
		a.add(r.Grade.Value)
		a.reinforced = true
	}

	if !matched {
		diags.add(Diagnostic{Kind: KindInvalidInput, Message: fmt.Sprintf("no grade records for subject %d", subjectID)})
	}

	terms := c.orderTerms(seen)
	result := &Result{
		SubjectID:  subjectID,
		Mode:       c.mode,
		Buckets:    buckets,
		Unweighted: c.unweighted,
		Terms:      terms,
		Records:    make([]Record, 0, len(roster)),
	}

	for _, s := range roster {
		rec := Record{StudentID: s.ID, StudentName: s.Name, PerTerm: []TermAverage{}}
		factors := make(map[string]float64)
		for _, term := range terms {
			a := acc[s.ID][term]
			if a == nil || a.count == 0 {
				continue
			}
			ta := TermAverage{
				Term:                  term,
				Average:               a.sum / float64(a.count),
				GradeCount:            a.count,
				IncludesReinforcement: a.reinforced,
				Label:                 LabelRegular,
			}
			if a.reinforced {
				ta.Label = LabelIncludesReinforcement
				rec.IncludesReinforcement = true
			}
			if w, ok := valid[term]; ok {
				factor := ta.Average * w
				ta.Weight = &w
				ta.AveFactor = &factor
				factors[term] = factor
				rec.FactorSum += factor
			} else if !rejected[term] && !c.unweighted {
				diags.add(Diagnostic{Kind: KindInvalidWeight, Term: term, Message: "no weight configured"})
			}
			rec.PerTerm = append(rec.PerTerm, ta)
		}
		if len(c.groups) > 0 {
			rec.PartialAverages = make([]PartialAverage, len(c.groups))
			for i, g := range c.groups {
				p := PartialAverage{Name: g.Name, Terms: g.Terms}
				for _, term := range g.Terms {
					if f, ok := factors[term]; ok {
						p.Value += f
						p.Contributing++
					}
				}
				rec.PartialAverages[i] = p
			}
		}
		rec.FinalAverage = c.final(rec.FactorSum, buckets)
		result.Records = append(result.Records, rec)
	}

	result.Diagnostics = diags.list
	return result
}

func (c *Calculator) final(sum float64, buckets int) float64 {
	if c.mode == ModeSumDividedByBuckets {
		if buckets == 0 {
			return 0
		}
		return sum / float64(buckets)
	}
	return sum
}

func (c *Calculator) orderTerms(seen []string) []string {
	present := make(map[string]struct{}, len(seen))
	for _, t := range seen {
		present[t] = struct{}{}
	}
	ordered := make([]string, 0, len(seen))
	placed := make(map[string]struct{}, len(seen))
	for _, t := range c.termOrder {
		if _, ok := present[t]; !ok {
			continue
		}
		if _, dup := placed[t]; dup {
			continue
		}
		placed[t] = struct{}{}
		ordered = append(ordered, t)
	}
	for _, t := range seen {
		if _, ok := placed[t]; ok {
			continue
		}
		placed[t] = struct{}{}
		ordered = append(ordered, t)
	}
	return ordered
}

// Display returns a copy of r rounded with the calculator's rounding.
func (c *Calculator) Display(r *Result) *Result {
	return r.Display(c.rounding)
}

// Display returns a copy of r with every average rounded for presentation.
// Weights are left untouched. A nil round uses Round2.
func (r *Result) Display(round func(float64) float64) *Result {
	if r == nil {
		return nil
	}
	if round == nil {
		round = Round2
	}
	out := *r
	out.Rounded = true
	out.Terms = append([]string(nil), r.Terms...)
	out.Diagnostics = append([]Diagnostic(nil), r.Diagnostics...)
	out.Records = make([]Record, len(r.Records))
	for i, rec := range r.Records {
		cp := rec
		cp.FactorSum = round(rec.FactorSum)
		cp.FinalAverage = round(rec.FinalAverage)
		cp.PerTerm = make([]TermAverage, len(rec.PerTerm))
		for j, ta := range rec.PerTerm {
			t := ta
			t.Average = round(ta.Average)
			if ta.AveFactor != nil {
				f := round(*ta.AveFactor)
				t.AveFactor = &f
			}
			if ta.Weight != nil {
				w := *ta.Weight
				t.Weight = &w
			}
			cp.PerTerm[j] = t
		}
		if rec.PartialAverages != nil {
			cp.PartialAverages = make([]PartialAverage, len(rec.PartialAverages))
			for j, p := range rec.PartialAverages {
				p.Value = round(p.Value)
				p.Terms = append([]string(nil), p.Terms...)
				cp.PartialAverages[j] = p
			}
		}
		out.Records[i] = cp
	}
	return &out
}
