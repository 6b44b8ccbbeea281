package average

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParseWeights converts raw term->weight strings (typically query values).
// Entries that do not parse, are not finite or fall outside [0,1] are left out
// of the returned map and reported as InvalidWeight diagnostics.
func ParseWeights(raw map[string]string) (Weights, []Diagnostic) {
	weights := make(Weights, len(raw))
	var diags []Diagnostic
	for _, term := range sortedKeys(raw) {
		value := strings.TrimSpace(raw[term])
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			diags = append(diags, Diagnostic{Kind: KindInvalidWeight, Term: term, Message: fmt.Sprintf("weight %q is not a number", value)})
			continue
		}
		if msg, ok := checkWeight(v); !ok {
			diags = append(diags, Diagnostic{Kind: KindInvalidWeight, Term: term, Message: msg})
			continue
		}
		weights[term] = v
	}
	return weights, diags
}

func checkWeight(v float64) (string, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "weight is not finite", false
	}
	if v < 0 || v > 1 {
		return fmt.Sprintf("weight %g outside [0,1]", v), false
	}
	return "", true
}

// AdjacentGroups splits an ordered term list into consecutive groups of size
// terms, named partial_1, partial_2, ... The last group may be shorter.
func AdjacentGroups(terms []string, size int) []Group {
	if size <= 0 || len(terms) == 0 {
		return nil
	}
	groups := make([]Group, 0, (len(terms)+size-1)/size)
	for start := 0; start < len(terms); start += size {
		end := start + size
		if end > len(terms) {
			end = len(terms)
		}
		chunk := make([]string, end-start)
		copy(chunk, terms[start:end])
		groups = append(groups, Group{Name: fmt.Sprintf("partial_%d", len(groups)+1), Terms: chunk})
	}
	return groups
}

// ParseGroup parses "name:term1,term2". A missing name yields partial_<index>.
func ParseGroup(raw string, index int) (Group, error) {
	raw = strings.TrimSpace(raw)
	name := fmt.Sprintf("partial_%d", index)
	spec := raw
	if i := strings.Index(raw, ":"); i >= 0 {
		if n := strings.TrimSpace(raw[:i]); n != "" {
			name = n
		}
		spec = raw[i+1:]
	}
	var terms []string
	for _, part := range strings.Split(spec, ",") {
		if t := strings.TrimSpace(part); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return Group{}, fmt.Errorf("group %q has no terms", raw)
	}
	return Group{Name: name, Terms: terms}, nil
}

// SortedTerms returns the weight keys in lexical order.
func (w Weights) SortedTerms() []string {
	return sortedKeys(w)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
