package domain

// Kind identifies the type of a topology node. It is assigned when the
// node is created and never changes.
type Kind string

const (
	KindDevice  Kind = "device"
	KindRouter  Kind = "router"
	KindBBMD    Kind = "bbmd"
	KindSubnet  Kind = "subnet"
	KindNetwork Kind = "network"

	// KindScanner is the distinguished self-node representing the scanning
	// application itself. Each graph holds at most one.
	KindScanner Kind = "scanner"
)

// Relation names an edge predicate between two nodes. Relations are
// append-only: adding the same (node, relation, target) twice is a no-op,
// adding a different target retains both.
type Relation string

const (
	// RelationDeviceOnNetwork attaches a device to the logical BACnet
	// network it answered from. Used for non-IP (e.g. MSTP) addresses.
	RelationDeviceOnNetwork Relation = "device-on-network"

	// RelationDeviceOnSubnet attaches a device to the IP subnet containing
	// its address.
	RelationDeviceOnSubnet Relation = "device-on-subnet"

	// RelationRouterToNetwork records one network a router announced
	// reachability for.
	RelationRouterToNetwork Relation = "router-to-network"

	// RelationBDTEntry links a BBMD to a peer BBMD found in its broadcast
	// distribution table.
	RelationBDTEntry Relation = "bdt-entry"

	// RelationBroadcastDomain links a BBMD to the subnet it relays
	// broadcasts for.
	RelationBroadcastDomain Relation = "bbmd-broadcast-domain"

	// RelationUnassociatedRouter hangs a router that matched no known
	// subnet off the scanner's self-node.
	RelationUnassociatedRouter Relation = "unassociated-router"

	// RelationDiffSource is provenance added by the snapshot diff: it marks
	// an entry as present in only one of the two compared snapshots. It is
	// valid on any node.
	RelationDiffSource Relation = "diff-source"
)

// kindRelations is the capability table: the fixed set of relation kinds a
// node of each Kind may carry. Subnets and networks are relation targets
// only.
var kindRelations = map[Kind][]Relation{
	KindDevice:  {RelationDeviceOnNetwork, RelationDeviceOnSubnet},
	KindRouter:  {RelationDeviceOnNetwork, RelationDeviceOnSubnet, RelationRouterToNetwork},
	KindBBMD:    {RelationBDTEntry, RelationBroadcastDomain},
	KindSubnet:  {},
	KindNetwork: {},
	KindScanner: {RelationDeviceOnNetwork, RelationDeviceOnSubnet, RelationUnassociatedRouter},
}

// typeTags maps each Kind to the tag used in the serialized type triple.
var typeTags = map[Kind]string{
	KindDevice:  "Device",
	KindRouter:  "Router",
	KindBBMD:    "BBMD",
	KindSubnet:  "Subnet",
	KindNetwork: "Network",
	KindScanner: "Scanner",
}

// ValidKind reports whether k is one of the closed set of node kinds.
func ValidKind(k Kind) bool {
	_, ok := kindRelations[k]
	return ok
}

// TypeTag returns the serialized type tag for a kind ("Device", "BBMD", ...).
func TypeTag(k Kind) string {
	return typeTags[k]
}

// Applicable reports whether nodes of kind k may carry relation rel.
func Applicable(k Kind, rel Relation) bool {
	if rel == RelationDiffSource {
		return true
	}
	for _, r := range kindRelations[k] {
		if r == rel {
			return true
		}
	}
	return false
}

// KnownRelation reports whether rel is one of the fixed predicate names.
func KnownRelation(rel Relation) bool {
	switch rel {
	case RelationDeviceOnNetwork, RelationDeviceOnSubnet, RelationRouterToNetwork,
		RelationBDTEntry, RelationBroadcastDomain, RelationUnassociatedRouter,
		RelationDiffSource:
		return true
	}
	return false
}
