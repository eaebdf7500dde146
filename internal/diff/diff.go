// Package diff compares two topology snapshots by their canonical
// triple lists. Node keys are deterministic, so set comparison over the
// canonical form is exact structural comparison; no graph matching is
// needed.
package diff

import (
	"fmt"

	"bactopo/internal/domain"
)

// Result partitions the triples of two snapshots. The three lists are
// pairwise disjoint and their union is the union of both inputs; each
// list is in canonical order.
type Result struct {
	InBoth  []domain.Triple
	OnlyInA []domain.Triple
	OnlyInB []domain.Triple
}

// Changed reports whether the two snapshots differ at all.
func (r Result) Changed() bool {
	return len(r.OnlyInA) > 0 || len(r.OnlyInB) > 0
}

// Compare partitions the triples of snapshots a and b. Duplicate triples
// within one input collapse; the inputs need not be sorted.
func Compare(a, b []domain.Triple) Result {
	inA := make(map[domain.Triple]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
	}
	inB := make(map[domain.Triple]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}

	var r Result
	for t := range inA {
		if _, ok := inB[t]; ok {
			r.InBoth = append(r.InBoth, t)
		} else {
			r.OnlyInA = append(r.OnlyInA, t)
		}
	}
	for t := range inB {
		if _, ok := inA[t]; !ok {
			r.OnlyInB = append(r.OnlyInB, t)
		}
	}

	domain.SortTriples(r.InBoth)
	domain.SortTriples(r.OnlyInA)
	domain.SortTriples(r.OnlyInB)
	return r
}

// CompareGraphs compares two graphs through their canonical forms.
// Either graph may be nil, which compares as empty.
func CompareGraphs(a, b *domain.Graph) Result {
	var ta, tb []domain.Triple
	if a != nil {
		ta = a.Triples()
	}
	if b != nil {
		tb = b.Triples()
	}
	return Compare(ta, tb)
}

// EntryRef builds the provenance object for one changed entry: the
// snapshot it came from plus the entry's own predicate and value as the
// fragment, so every marker attributes exactly one triple even when a
// subject changed on both sides.
func EntryRef(label string, t domain.Triple) domain.Object {
	return domain.Ref(domain.NodeKey(fmt.Sprintf("snapshot://%s#%s=%s", label, t.Predicate, t.Object.Value())))
}

// Merged renders a diff as one triple list: the union of both snapshots
// plus one diff-source triple per changed entry, naming the snapshot
// that entry came from. The result is in canonical order and loads back
// through the normal snapshot path.
func Merged(r Result, labelA, labelB string) []domain.Triple {
	out := make([]domain.Triple, 0, len(r.InBoth)+2*(len(r.OnlyInA)+len(r.OnlyInB)))
	out = append(out, r.InBoth...)
	out = append(out, r.OnlyInA...)
	out = append(out, r.OnlyInB...)

	out = append(out, provenance(r.OnlyInA, labelA)...)
	out = append(out, provenance(r.OnlyInB, labelB)...)

	domain.SortTriples(out)
	return out
}

// provenance emits one diff-source triple per entry in ts.
func provenance(ts []domain.Triple, label string) []domain.Triple {
	out := make([]domain.Triple, 0, len(ts))
	for _, t := range ts {
		out = append(out, domain.Triple{
			Subject:   t.Subject,
			Predicate: string(domain.RelationDiffSource),
			Object:    EntryRef(label, t),
		})
	}
	return out
}
