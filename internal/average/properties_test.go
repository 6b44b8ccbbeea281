package average

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func gradeRecordsFrom(values []float64, term string) []GradeRecord {
	grades := make([]LabelGrade, len(values))
	for i, v := range values {
		grades[i] = grade(i+1, v)
	}
	return []GradeRecord{{StudentID: 1, SubjectID: 10, Terms: []TermGrades{{Term: term, Grades: grades}}}}
}

func TestCalculatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	students := []Student{{ID: 1, Name: "Ana"}}

	properties.Property("compute is deterministic", prop.ForAll(
		func(values []float64, w float64) bool {
			calc, _ := New(Config{Mode: ModeSumDividedByBuckets})
			grades := gradeRecordsFrom(values, "T1")
			a := calc.Compute(students, grades, nil, Weights{"T1": w}, 10)
			b := calc.Compute(students, grades, nil, Weights{"T1": w}, 10)
			return reflect.DeepEqual(a, b)
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0, 1),
	))

	properties.Property("ave_factor equals average times weight", prop.ForAll(
		func(values []float64, w float64) bool {
			res, _ := ComputeAverages(students, gradeRecordsFrom(values, "T1"), nil, Weights{"T1": w}, 10, Config{})
			rec, _ := res.Record(1)
			if len(values) == 0 {
				return len(rec.PerTerm) == 0
			}
			ta := rec.PerTerm[0]
			return ta.AveFactor != nil && math.Abs(*ta.AveFactor-ta.Average*w) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0, 1),
	))

	properties.Property("average stays within grade bounds", prop.ForAll(
		func(values []float64) bool {
			res, _ := ComputeAverages(students, gradeRecordsFrom(values, "T1"), nil, Weights{"T1": 1}, 10, Config{})
			rec, _ := res.Record(1)
			if len(rec.PerTerm) == 0 {
				return len(values) == 0
			}
			lo, hi := values[0], values[0]
			for _, v := range values {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			avg := rec.PerTerm[0].Average
			return avg >= lo-1e-9 && avg <= hi+1e-9
		},
		gen.SliceOfN(5, gen.Float64Range(0, 10)),
	))

	properties.Property("modes agree with a single bucket", prop.ForAll(
		func(values []float64, w float64) bool {
			grades := gradeRecordsFrom(values, "T1")
			sum, _ := ComputeAverages(students, grades, nil, Weights{"T1": w}, 10, Config{Mode: ModeSum})
			divided, _ := ComputeAverages(students, grades, nil, Weights{"T1": w}, 10, Config{Mode: ModeSumDividedByBuckets})
			s, _ := sum.Record(1)
			d, _ := divided.Record(1)
			return math.Abs(s.FinalAverage-d.FinalAverage) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0, 1),
	))

	properties.Property("reinforcement moves the term average toward its value", prop.ForAll(
		func(values []float64, r float64) bool {
			grades := gradeRecordsFrom(values, "T1")
			base, _ := ComputeAverages(students, grades, nil, Weights{"T1": 1}, 10, Config{})
			before, _ := base.Record(1)
			if len(before.PerTerm) == 0 {
				return true
			}
			avg := before.PerTerm[0].Average
			extra := []ReinforcementGrade{{StudentID: 1, SubjectID: 10, Term: "T1", Label: "refuerzo", Grade: NewScore(r)}}
			folded, _ := ComputeAverages(students, grades, extra, Weights{"T1": 1}, 10, Config{})
			after, _ := folded.Record(1)
			ta := after.PerTerm[0]
			if !ta.IncludesReinforcement || !after.IncludesReinforcement {
				return false
			}
			if math.Abs(r-avg) < 1e-6 {
				return math.Abs(ta.Average-avg) < 1e-6
			}
			lo, hi := math.Min(avg, r), math.Max(avg, r)
			return ta.Average > lo && ta.Average < hi
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0, 10),
	))

	properties.Property("reinforcement equal to the average keeps it", prop.ForAll(
		func(values []float64) bool {
			grades := gradeRecordsFrom(values, "T1")
			base, _ := ComputeAverages(students, grades, nil, Weights{"T1": 1}, 10, Config{})
			before, _ := base.Record(1)
			avg := before.PerTerm[0].Average
			extra := []ReinforcementGrade{{StudentID: 1, SubjectID: 10, Term: "T1", Label: "refuerzo", Grade: NewScore(avg)}}
			folded, _ := ComputeAverages(students, grades, extra, Weights{"T1": 1}, 10, Config{})
			after, _ := folded.Record(1)
			return math.Abs(after.PerTerm[0].Average-avg) < 1e-9 && after.PerTerm[0].IncludesReinforcement
		},
		gen.SliceOfN(4, gen.Float64Range(0, 10)),
	))

	properties.Property("unweighted results keep term averages without factors", prop.ForAll(
		func(values []float64) bool {
			res, _ := ComputeAverages(students, gradeRecordsFrom(values, "T1"), nil, nil, 10, Config{Unweighted: true})
			rec, _ := res.Record(1)
			if res.HasKind(KindInvalidWeight) || rec.FinalAverage != 0 {
				return false
			}
			return len(rec.PerTerm) == 1 && rec.PerTerm[0].AveFactor == nil
		},
		gen.SliceOfN(3, gen.Float64Range(0, 10)),
	))

	properties.Property("display never shifts a value by more than half a cent", prop.ForAll(
		func(values []float64, w float64) bool {
			res, _ := ComputeAverages(students, gradeRecordsFrom(values, "T1"), nil, Weights{"T1": w}, 10, Config{})
			shown := res.Display(nil)
			raw, _ := res.Record(1)
			rounded, _ := shown.Record(1)
			return math.Abs(raw.FinalAverage-rounded.FinalAverage) <= 0.005+1e-9
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
