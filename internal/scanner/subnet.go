package scanner

import (
	"log"
	"net/netip"

	"bactopo/internal/domain"
)

// findSubnet returns the first declared or previously synthesized subnet
// containing ip.
func (s *scanState) findSubnet(ip netip.Addr) (netip.Prefix, bool) {
	for _, subnet := range s.subnets {
		if subnet.Contains(ip) {
			return subnet, true
		}
	}
	return netip.Prefix{}, false
}

// associateSubnet attaches node to the subnet containing ip through rel.
// When no known subnet matches, one is synthesized around the address
// (default /24) and appended to the subnet list, so later addresses in
// the same range reuse it. Subnets only grow during a scan.
func (s *scanState) associateSubnet(node *domain.Node, rel domain.Relation, ip netip.Addr) domain.NodeKey {
	subnet, ok := s.findSubnet(ip)
	if !ok {
		subnet = netip.PrefixFrom(ip, s.prefixLen).Masked()
		s.subnets = append(s.subnets, subnet)
		log.Printf("Synthesized subnet %s for %s", subnet, ip)
	}

	key := s.ensureSubnetNode(subnet)
	if err := node.Relate(rel, key); err != nil {
		log.Printf("Skipping subnet relation on %s: %v", node.Key, err)
	}
	return key
}

// ensureSubnetNode creates the subnet node if it does not exist yet.
func (s *scanState) ensureSubnetNode(subnet netip.Prefix) domain.NodeKey {
	return s.graph.Ensure(domain.KindSubnet, subnet.String()).Key
}
