package bacnet

import "context"

// IAm is one device's answer to a Who-Is broadcast.
type IAm struct {
	Source       Address
	DeviceID     uint32
	MaxAPDU      uint16
	Segmentation uint8
	VendorID     uint16
}

// RouterAdvert is one router's answer to Who-Is-Router-To-Network: the
// router's own address and the networks it announces reachability for.
type RouterAdvert struct {
	Source   Address
	Networks []uint16
}

// FDTEntry is one row of a BBMD's foreign device table.
type FDTEntry struct {
	Address   Address
	TTL       uint16
	Remaining uint16
}

// Client is the discovery surface the scanner drives. All calls block
// until the bounded response window or timeout elapses; transport
// failures surface as errors and the caller decides whether they abort
// anything (for the scanner they never do).
type Client interface {
	// WhoIs broadcasts a Who-Is for the inclusive device instance range
	// [low, high] and collects I-Am responses for the response window.
	WhoIs(ctx context.Context, low, high uint32) ([]IAm, error)

	// WhoIsRouterToNetwork broadcasts a Who-Is-Router-To-Network scoped to
	// one network number and collects router announcements.
	WhoIsRouterToNetwork(ctx context.Context, network uint16) ([]RouterAdvert, error)

	// ReadBroadcastDistributionTable reads the BDT from a suspected BBMD.
	// A timeout is reported as an error; the caller treats it as a
	// negative probe result.
	ReadBroadcastDistributionTable(ctx context.Context, addr Address) ([]Address, error)

	// ReadForeignDeviceTable reads the FDT from a BBMD.
	ReadForeignDeviceTable(ctx context.Context, addr Address) ([]FDTEntry, error)

	// Close releases the transport.
	Close() error
}
