package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Property names a single-valued common property of a node. Writing a
// property that already has a value replaces it.
type Property string

const (
	PropertyLabel          Property = "label"
	PropertyDeviceInstance Property = "device-instance"
	PropertyAddress        Property = "address"
	PropertyVendorID       Property = "vendor-id"
)

// ObjectType discriminates the typed literal forms an object may take.
type ObjectType string

const (
	ObjectString  ObjectType = "string"
	ObjectInteger ObjectType = "integer"
	ObjectRef     ObjectType = "ref"
)

// Object is a typed triple object: a string literal, an integer literal,
// or a reference to another node key / IRI.
type Object struct {
	Type ObjectType
	Str  string
	Int  int64
}

// String builds a string literal object.
func String(s string) Object { return Object{Type: ObjectString, Str: s} }

// Integer builds an integer literal object.
func Integer(i int64) Object { return Object{Type: ObjectInteger, Int: i} }

// Ref builds a reference object pointing at a node key or IRI.
func Ref(key NodeKey) Object { return Object{Type: ObjectRef, Str: string(key)} }

// Value renders the object's payload as a string, for logging and storage.
func (o Object) Value() string {
	if o.Type == ObjectInteger {
		return fmt.Sprintf("%d", o.Int)
	}
	return o.Str
}

// NodeKey is the absolute identifier of a node, of the form kind://id.
type NodeKey string

// MakeKey builds a node key from a kind and an identifier.
func MakeKey(kind Kind, id string) NodeKey {
	return NodeKey(string(kind) + "://" + id)
}

// VendorRef builds the IRI-style vendor reference used for the vendor-id
// property (vendor://999).
func VendorRef(vendorID uint16) NodeKey {
	return NodeKey(fmt.Sprintf("vendor://%d", vendorID))
}

// ParseKey splits a node key into its kind and identifier.
func ParseKey(key NodeKey) (Kind, string, error) {
	kind, id, ok := strings.Cut(string(key), "://")
	if !ok {
		return "", "", fmt.Errorf("malformed node key %q", key)
	}
	if !ValidKind(Kind(kind)) {
		return "", "", fmt.Errorf("unknown node kind %q in key %q", kind, key)
	}
	if id == "" {
		return "", "", fmt.Errorf("empty identifier in key %q", key)
	}
	return Kind(kind), id, nil
}

// Node is a single topology entity. The Kind is immutable; relations are
// restricted to the capability set of that Kind.
type Node struct {
	Key  NodeKey
	Kind Kind

	props     map[Property]Object
	relations map[Relation]map[NodeKey]struct{}
}

func newNode(kind Kind, id string) *Node {
	return &Node{
		Key:       MakeKey(kind, id),
		Kind:      kind,
		props:     make(map[Property]Object),
		relations: make(map[Relation]map[NodeKey]struct{}),
	}
}

// ID returns the identifier portion of the node's key.
func (n *Node) ID() string {
	_, id, _ := strings.Cut(string(n.Key), "://")
	return id
}

// SetProperty writes a common property. Last write wins.
func (n *Node) SetProperty(p Property, v Object) {
	n.props[p] = v
}

// Property returns the current value of a common property.
func (n *Node) Property(p Property) (Object, bool) {
	v, ok := n.props[p]
	return v, ok
}

// SetLabel sets the node's display label.
func (n *Node) SetLabel(label string) {
	n.SetProperty(PropertyLabel, String(label))
}

// SetInstance sets the BACnet device instance number.
func (n *Node) SetInstance(instance uint32) {
	n.SetProperty(PropertyDeviceInstance, Integer(int64(instance)))
}

// SetAddress sets the transport address the node answered from.
func (n *Node) SetAddress(addr string) {
	n.SetProperty(PropertyAddress, String(addr))
}

// SetVendor stores the vendor identifier as a vendor:// reference.
func (n *Node) SetVendor(vendorID uint16) {
	n.SetProperty(PropertyVendorID, Ref(VendorRef(vendorID)))
}

// Relate appends a relation target. Adding the same target twice has no
// additional effect; prior targets are never removed. Relations outside
// the node kind's capability set are rejected.
func (n *Node) Relate(rel Relation, target NodeKey) error {
	if !Applicable(n.Kind, rel) {
		return fmt.Errorf("relation %q does not apply to %s nodes", rel, n.Kind)
	}
	set, ok := n.relations[rel]
	if !ok {
		set = make(map[NodeKey]struct{})
		n.relations[rel] = set
	}
	set[target] = struct{}{}
	return nil
}

// Relations returns the targets recorded under rel, sorted.
func (n *Node) Relations(rel Relation) []NodeKey {
	set := n.relations[rel]
	if len(set) == 0 {
		return nil
	}
	targets := make([]NodeKey, 0, len(set))
	for t := range set {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// HasRelation reports whether (rel, target) is recorded on the node.
func (n *Node) HasRelation(rel Relation, target NodeKey) bool {
	_, ok := n.relations[rel][target]
	return ok
}
