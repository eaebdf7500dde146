package domain

import (
	"fmt"
	"sort"
)

// PredicateType is the predicate carrying a node's kind tag in the
// interchange form.
const PredicateType = "type"

// TypeRef builds the object recorded under the type predicate
// (bacnet://Device, bacnet://BBMD, ...).
func TypeRef(kind Kind) Object {
	return Ref(NodeKey("bacnet://" + TypeTag(kind)))
}

// Triple is one entry of the serialized interchange form: a node key, a
// predicate (type, a property name, or a relation name), and a typed
// object.
type Triple struct {
	Subject   string
	Predicate string
	Object    Object
}

func (t Triple) less(o Triple) bool {
	if t.Subject != o.Subject {
		return t.Subject < o.Subject
	}
	if t.Predicate != o.Predicate {
		return t.Predicate < o.Predicate
	}
	if t.Object.Type != o.Object.Type {
		return t.Object.Type < o.Object.Type
	}
	if t.Object.Str != o.Object.Str {
		return t.Object.Str < o.Object.Str
	}
	return t.Object.Int < o.Object.Int
}

// SortTriples sorts a triple list into canonical order. Two graphs are
// structurally equal exactly when their canonical triple lists are equal,
// independent of insertion order.
func SortTriples(ts []Triple) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].less(ts[j]) })
}

// Triples serializes the graph to its canonical triple list: one type
// triple per node, one triple per set property, one per relation target.
func (g *Graph) Triples() []Triple {
	var ts []Triple
	for _, n := range g.Nodes() {
		subject := string(n.Key)
		ts = append(ts, Triple{Subject: subject, Predicate: PredicateType, Object: TypeRef(n.Kind)})
		for _, p := range []Property{PropertyLabel, PropertyDeviceInstance, PropertyAddress, PropertyVendorID} {
			if v, ok := n.Property(p); ok {
				ts = append(ts, Triple{Subject: subject, Predicate: string(p), Object: v})
			}
		}
		for rel := range n.relations {
			for _, target := range n.Relations(rel) {
				ts = append(ts, Triple{Subject: subject, Predicate: string(rel), Object: Ref(target)})
			}
		}
	}
	SortTriples(ts)
	return ts
}

// FromTriples rebuilds a graph from its interchange form. Unknown
// predicates, mistyped objects, and keys outside the kind://id form are
// errors; callers treat them as a failed snapshot load.
func FromTriples(ts []Triple) (*Graph, error) {
	g := NewGraph()
	for _, t := range ts {
		kind, id, err := ParseKey(NodeKey(t.Subject))
		if err != nil {
			return nil, err
		}
		n := g.Ensure(kind, id)

		switch t.Predicate {
		case PredicateType:
			if want := TypeRef(kind); t.Object != want {
				return nil, fmt.Errorf("type triple %q on %s disagrees with key kind %s",
					t.Object.Value(), t.Subject, kind)
			}
		case string(PropertyLabel), string(PropertyAddress):
			if t.Object.Type != ObjectString {
				return nil, fmt.Errorf("property %s on %s: expected string object, got %s",
					t.Predicate, t.Subject, t.Object.Type)
			}
			n.SetProperty(Property(t.Predicate), t.Object)
		case string(PropertyDeviceInstance):
			if t.Object.Type != ObjectInteger {
				return nil, fmt.Errorf("property %s on %s: expected integer object, got %s",
					t.Predicate, t.Subject, t.Object.Type)
			}
			n.SetProperty(PropertyDeviceInstance, t.Object)
		case string(PropertyVendorID):
			if t.Object.Type != ObjectRef {
				return nil, fmt.Errorf("property %s on %s: expected ref object, got %s",
					t.Predicate, t.Subject, t.Object.Type)
			}
			n.SetProperty(PropertyVendorID, t.Object)
		default:
			rel := Relation(t.Predicate)
			if !KnownRelation(rel) {
				return nil, fmt.Errorf("unknown predicate %q on %s", t.Predicate, t.Subject)
			}
			if t.Object.Type != ObjectRef {
				return nil, fmt.Errorf("relation %s on %s: expected ref object, got %s",
					rel, t.Subject, t.Object.Type)
			}
			if err := n.Relate(rel, NodeKey(t.Object.Str)); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
