package scanner

import (
	"context"
	"fmt"
	"log"
	"sort"

	"bactopo/internal/bacnet"
	"bactopo/internal/domain"
)

// discoverRouters issues one Who-Is-Router-To-Network per network number
// accumulated during device discovery. Queries are scoped per network
// rather than one global broadcast to bound load on a large
// internetwork; a failed query is logged and the next network proceeds.
func (s *Scanner) discoverRouters(ctx context.Context, state *scanState) error {
	networks := make([]uint16, 0, len(state.networks))
	for n := range state.networks {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i] < networks[j] })

	for _, network := range networks {
		if err := ctx.Err(); err != nil {
			return err
		}
		adverts, err := s.client.WhoIsRouterToNetwork(ctx, network)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Who-Is-Router-To-Network %d failed: %v", network, err)
			continue
		}
		for _, advert := range adverts {
			s.recordRouter(state, advert)
		}
	}
	return nil
}

// recordRouter merges one router announcement. Every announced network
// adds its own router-to-network relation; announcements from different
// probes accumulate, none overwrite. A router whose address matches no
// known subnet hangs off the scanner's self-node instead.
func (s *Scanner) recordRouter(state *scanState, advert bacnet.RouterAdvert) {
	node := state.graph.Ensure(domain.KindRouter, advert.Source.String())
	node.SetLabel(string(node.Key))
	node.SetAddress(advert.Source.String())

	for _, network := range advert.Networks {
		target := domain.MakeKey(domain.KindNetwork, fmt.Sprintf("%d", network))
		if err := node.Relate(domain.RelationRouterToNetwork, target); err != nil {
			log.Printf("Skipping router network relation on %s: %v", node.Key, err)
		}
	}

	associated := false
	if advert.Source.IsIP() {
		if subnet, found := state.findSubnet(advert.Source.IP); found {
			if err := node.Relate(domain.RelationDeviceOnSubnet, state.ensureSubnetNode(subnet)); err != nil {
				log.Printf("Skipping router subnet relation on %s: %v", node.Key, err)
			}
			associated = true
		}
	}
	if !associated {
		if err := state.self.Relate(domain.RelationUnassociatedRouter, node.Key); err != nil {
			log.Printf("Skipping unassociated router relation: %v", err)
		}
	}
}
