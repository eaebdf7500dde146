package scanner

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"bactopo/internal/bacnet"
	"bactopo/internal/domain"
)

// discoverDevices walks the adaptive Who-Is windows across the
// configured instance range. A failed window counts as zero results and
// discovery moves to the next window; only cancellation stops the phase.
func (s *Scanner) discoverDevices(ctx context.Context, state *scanState) error {
	windows := planWindows(s.prev, s.opts.LowLimit, s.opts.HighLimit,
		s.opts.FullStepSize, s.opts.EmptyStepSize)
	log.Printf("Device discovery: %d windows over [%d, %d]",
		len(windows), s.opts.LowLimit, s.opts.HighLimit)

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		iams, err := s.client.WhoIs(ctx, w.Low, w.High)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Who-Is [%d, %d] failed: %v", w.Low, w.High, err)
			continue
		}
		for _, iam := range iams {
			s.recordDevice(ctx, state, iam)
		}
	}
	return nil
}

// recordDevice merges one I-Am response into the graph. IP-mappable
// devices are classified (BBMD or plain device) and associated with a
// subnet; routed devices fall back to their network number.
func (s *Scanner) recordDevice(ctx context.Context, state *scanState, iam bacnet.IAm) {
	if iam.DeviceID > 4194303 {
		log.Printf("Skipping I-Am from %s: instance %d out of range", iam.Source, iam.DeviceID)
		return
	}
	id := strconv.FormatUint(uint64(iam.DeviceID), 10)

	if !iam.Source.IsIP() {
		dev := state.graph.Ensure(domain.KindDevice, id)
		dev.SetLabel(string(dev.Key))
		dev.SetInstance(iam.DeviceID)
		dev.SetAddress(iam.Source.String())
		dev.SetVendor(iam.VendorID)
		network := iam.Source.Net
		if err := dev.Relate(domain.RelationDeviceOnNetwork, domain.MakeKey(domain.KindNetwork, fmt.Sprintf("%d", network))); err != nil {
			log.Printf("Skipping network relation on %s: %v", dev.Key, err)
		}
		state.networks[network] = struct{}{}
		return
	}

	kind := domain.KindDevice
	subnetRel := domain.RelationDeviceOnSubnet
	if s.isBBMD(ctx, state, iam.Source) {
		kind = domain.KindBBMD
		subnetRel = domain.RelationBroadcastDomain
	}

	node := state.graph.Ensure(kind, id)
	node.SetLabel(string(node.Key))
	node.SetInstance(iam.DeviceID)
	node.SetAddress(iam.Source.String())
	node.SetVendor(iam.VendorID)

	state.associateSubnet(node, subnetRel, iam.Source.IP)

	if kind == domain.KindBBMD {
		state.bbmdByAddr[iam.Source.Key()] = node
	}
}

// isBBMD classifies a device as a broadcast-relay. The active probe runs
// first so a successful read also yields the BDT contents for the later
// cross-linking pass; the configured allow-list catches BBMDs that
// refuse the read. Probe timeouts are negative results, never errors.
func (s *Scanner) isBBMD(ctx context.Context, state *scanState, addr bacnet.Address) bool {
	bdt, err := s.client.ReadBroadcastDistributionTable(ctx, addr)
	if err == nil {
		state.bdtByAddr[addr.Key()] = bdt
		return true
	}

	for _, allowed := range s.opts.BBMDs {
		if allowed.Equal(addr) {
			return true
		}
	}
	return false
}

// readForeignDeviceTables reads the FDT from every configured BBMD,
// best-effort. Results live in the scan state keyed by address; failures
// are logged and ignored.
func (s *Scanner) readForeignDeviceTables(ctx context.Context, state *scanState) error {
	for _, addr := range s.opts.BBMDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		fdt, err := s.client.ReadForeignDeviceTable(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("FDT read from %s failed: %v", addr, err)
			continue
		}
		state.fdtByAddr[addr.Key()] = fdt
		log.Printf("FDT from %s: %d registrations", addr, len(fdt))
	}
	return nil
}
