package scanner

import (
	"context"
	"fmt"
	"log"
	"net/netip"
	"strings"
	"time"

	"bactopo/internal/bacnet"
	"bactopo/internal/domain"
)

// Options configures one scanner instance. The limits and step sizes
// drive the adaptive Who-Is windows; BBMDs is the operator-declared
// allow-list of known broadcast-relay addresses.
type Options struct {
	LocalName     string
	LocalInstance uint32
	LocalAddress  string // CIDR form with optional port, e.g. "192.168.1.12/24:47808"
	VendorID      uint16

	LowLimit      uint32
	HighLimit     uint32
	FullStepSize  uint32
	EmptyStepSize uint32

	BBMDs        []bacnet.Address
	KnownSubnets []netip.Prefix

	// SubnetPrefixLen is the prefix length used when synthesizing a
	// subnet for an address outside every known subnet. Defaults to 24.
	SubnetPrefixLen int
}

func (o *Options) applyDefaults() {
	if o.LocalName == "" {
		o.LocalName = "bactopo"
	}
	if o.HighLimit == 0 {
		o.HighLimit = 4194303
	}
	if o.EmptyStepSize == 0 {
		o.EmptyStepSize = 1000
	}
	if o.FullStepSize == 0 {
		o.FullStepSize = 100
	}
	if o.SubnetPrefixLen == 0 {
		o.SubnetPrefixLen = 24
	}
}

// Scanner runs topology scans against one BACnet client. It is not safe
// for concurrent use; callers must not start a scan before the previous
// one finishes.
type Scanner struct {
	client bacnet.Client
	prev   *domain.Graph // prior scan, read-only density hint
	opts   Options
}

// New creates a scanner. prev may be nil for a first scan.
func New(client bacnet.Client, prev *domain.Graph, opts Options) *Scanner {
	opts.applyDefaults()
	return &Scanner{client: client, prev: prev, opts: opts}
}

// scanState is the per-scan working set: the graph being built plus the
// bookkeeping that outlives individual phases.
type scanState struct {
	graph     *domain.Graph
	self      *domain.Node
	subnets   []netip.Prefix
	prefixLen int

	networks   map[uint16]struct{}
	bbmdByAddr map[string]*domain.Node
	bdtByAddr  map[string][]bacnet.Address
	fdtByAddr  map[string][]bacnet.FDTEntry
}

// Result is what one scan produced: the topology graph and the raw
// foreign-device tables read from configured BBMDs.
type Result struct {
	Graph               *domain.Graph
	ForeignDeviceTables map[string][]bacnet.FDTEntry
	Duration            time.Duration
}

// Scan performs one full scan: device discovery, router discovery, then
// BBMD table resolution. On cancellation the returned graph is valid but
// possibly incomplete; the error reports the cancellation.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	state := &scanState{
		graph:      domain.NewGraph(),
		subnets:    append([]netip.Prefix(nil), s.opts.KnownSubnets...),
		prefixLen:  s.opts.SubnetPrefixLen,
		networks:   make(map[uint16]struct{}),
		bbmdByAddr: make(map[string]*domain.Node),
		bdtByAddr:  make(map[string][]bacnet.Address),
		fdtByAddr:  make(map[string][]bacnet.FDTEntry),
	}
	result := &Result{Graph: state.graph, ForeignDeviceTables: state.fdtByAddr}

	s.setSelfNode(state)

	if err := s.discoverDevices(ctx, state); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if err := s.discoverRouters(ctx, state); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if err := s.readForeignDeviceTables(ctx, state); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	s.finalize(state)
	result.Duration = time.Since(start)
	log.Printf("Scan complete: %d nodes, %d subnets, %d networks in %s",
		state.graph.Len(), len(state.subnets), len(state.networks), result.Duration)
	return result, nil
}

// setSelfNode records the scanner itself in the graph, with its own
// subnet association.
func (s *Scanner) setSelfNode(state *scanState) {
	self := state.graph.Ensure(domain.KindScanner, s.opts.LocalName)
	self.SetLabel(s.opts.LocalName)
	self.SetInstance(s.opts.LocalInstance)
	self.SetAddress(s.opts.LocalAddress)
	if s.opts.VendorID != 0 {
		self.SetVendor(s.opts.VendorID)
	}
	state.self = self

	if ip, ok := localIP(s.opts.LocalAddress); ok {
		state.associateSubnet(self, domain.RelationDeviceOnSubnet, ip)
	}
}

// localIP extracts the bare IP from a CIDR-with-port local address.
func localIP(local string) (netip.Addr, bool) {
	host, _, _ := strings.Cut(local, ":")
	host, _, _ = strings.Cut(host, "/")
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip, true
}

// finalize materializes subnet and network nodes and cross-links BBMDs
// through their BDT entries. BDT linking runs last because a table may
// reference a BBMD that was discovered later in the same scan.
func (s *Scanner) finalize(state *scanState) {
	for _, subnet := range state.subnets {
		state.ensureSubnetNode(subnet)
	}
	for network := range state.networks {
		state.graph.Ensure(domain.KindNetwork, fmt.Sprintf("%d", network))
	}

	for addrKey, bdt := range state.bdtByAddr {
		node, ok := state.bbmdByAddr[addrKey]
		if !ok {
			continue
		}
		for _, entry := range bdt {
			peer, ok := state.bbmdByAddr[entry.Key()]
			if !ok {
				continue
			}
			if err := node.Relate(domain.RelationBDTEntry, peer.Key); err != nil {
				log.Printf("Skipping BDT entry on %s: %v", node.Key, err)
			}
		}
	}
}
