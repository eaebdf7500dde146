package bacnet

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config carries the transport settings for the UDP client.
type Config struct {
	// Address is the local address in CIDR form with an optional port,
	// e.g. "192.168.1.12/24:47808". The prefix determines the local
	// broadcast address.
	Address string

	// ResponseWindow bounds how long a Who-Is or router broadcast
	// collects answers.
	ResponseWindow time.Duration

	// ProbeTimeout bounds each BDT/FDT table read.
	ProbeTimeout time.Duration

	// ForeignBBMD, when set, registers the client as a foreign device
	// with that BBMD on startup. TTL is the registration lifetime in
	// seconds.
	ForeignBBMD string
	TTL         uint16
}

// UDPClient implements Client over a BACnet/IP UDP socket.
type UDPClient struct {
	conn           *net.UDPConn
	local          netip.Addr
	broadcast      *net.UDPAddr
	responseWindow time.Duration
	probeTimeout   time.Duration

	bdt *registry[[]Address]
	fdt *registry[[]FDTEntry]

	mu         sync.Mutex
	iamSink    chan IAm
	routerSink chan RouterAdvert

	closeOnce sync.Once
	done      chan struct{}
}

// NewUDPClient binds the BACnet/IP socket and starts the receive loop.
// A config that cannot produce a working socket is a fatal setup error;
// no discovery traffic has been sent when it is returned.
func NewUDPClient(cfg Config) (*UDPClient, error) {
	local, prefix, port, err := parseLocalAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("bacnet setup: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("bacnet setup: bind port %d: %w", port, err)
	}

	c := &UDPClient{
		conn:           conn,
		local:          local,
		broadcast:      &net.UDPAddr{IP: broadcastIP(prefix), Port: int(port)},
		responseWindow: cfg.ResponseWindow,
		probeTimeout:   cfg.ProbeTimeout,
		bdt:            newRegistry[[]Address](),
		fdt:            newRegistry[[]FDTEntry](),
		done:           make(chan struct{}),
	}
	if c.responseWindow <= 0 {
		c.responseWindow = 3 * time.Second
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = 5 * time.Second
	}

	go c.readLoop()
	log.Printf("BACnet/IP client bound on %s (local %s, broadcast %s)",
		conn.LocalAddr(), c.local, c.broadcast.IP)

	if cfg.ForeignBBMD != "" {
		if err := c.registerForeignDevice(cfg.ForeignBBMD, cfg.TTL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bacnet setup: %w", err)
		}
	}

	return c, nil
}

// parseLocalAddress splits "192.168.1.12/24:47808" into address, prefix,
// and port. The port defaults to 47808 when absent.
func parseLocalAddress(s string) (netip.Addr, netip.Prefix, uint16, error) {
	addrPart := s
	port := uint16(DefaultPort)
	if cidr, portPart, ok := strings.Cut(s, ":"); ok {
		p, err := strconv.ParseUint(portPart, 10, 16)
		if err != nil {
			return netip.Addr{}, netip.Prefix{}, 0, fmt.Errorf("parse local address %q: bad port", s)
		}
		port = uint16(p)
		addrPart = cidr
	}
	prefix, err := netip.ParsePrefix(addrPart)
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, 0, fmt.Errorf("parse local address %q: %w", s, err)
	}
	return prefix.Addr(), prefix.Masked(), port, nil
}

// broadcastIP computes the directed broadcast address of an IPv4 prefix.
func broadcastIP(prefix netip.Prefix) net.IP {
	addr := prefix.Masked().Addr().As4()
	bits := prefix.Bits()
	for i := bits; i < 32; i++ {
		addr[i/8] |= 0x80 >> (i % 8)
	}
	return net.IP(addr[:])
}

func (c *UDPClient) registerForeignDevice(bbmd string, ttl uint16) error {
	addr, err := ParseAddress(bbmd)
	if err != nil || !addr.IsIP() {
		return fmt.Errorf("foreign BBMD %q is not an IP address", bbmd)
	}
	if ttl == 0 {
		ttl = 300
	}
	log.Printf("Registering as foreign device with %s (ttl=%ds)", addr, ttl)
	return c.send(encodeRegisterForeignDevice(ttl), udpAddr(addr))
}

// WhoIs broadcasts a Who-Is for [low, high] and collects I-Am responses
// until the response window closes. Responses are deduplicated by source
// and device id.
func (c *UDPClient) WhoIs(ctx context.Context, low, high uint32) ([]IAm, error) {
	sink := make(chan IAm, 64)
	if err := c.setIAmSink(sink); err != nil {
		return nil, err
	}
	defer c.setIAmSink(nil)

	frame := encodeBVLL(funcOriginalBroadcastNPDU, encodeGlobalBroadcastNPDU(encodeWhoIs(low, high)))
	if err := c.send(frame, c.broadcast); err != nil {
		return nil, err
	}

	var results []IAm
	seen := make(map[string]struct{})
	timer := time.NewTimer(c.responseWindow)
	defer timer.Stop()
	for {
		select {
		case iam := <-sink:
			key := fmt.Sprintf("%s/%d", iam.Source.Key(), iam.DeviceID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			results = append(results, iam)
		case <-timer.C:
			return results, nil
		case <-ctx.Done():
			return results, ctx.Err()
		case <-c.done:
			return results, fmt.Errorf("client closed")
		}
	}
}

// WhoIsRouterToNetwork broadcasts a router query scoped to one network
// and collects announcements until the response window closes.
func (c *UDPClient) WhoIsRouterToNetwork(ctx context.Context, network uint16) ([]RouterAdvert, error) {
	sink := make(chan RouterAdvert, 16)
	if err := c.setRouterSink(sink); err != nil {
		return nil, err
	}
	defer c.setRouterSink(nil)

	frame := encodeBVLL(funcOriginalBroadcastNPDU, encodeWhoIsRouterToNetwork(network))
	if err := c.send(frame, c.broadcast); err != nil {
		return nil, err
	}

	var results []RouterAdvert
	timer := time.NewTimer(c.responseWindow)
	defer timer.Stop()
	for {
		select {
		case advert := <-sink:
			results = append(results, advert)
		case <-timer.C:
			return results, nil
		case <-ctx.Done():
			return results, ctx.Err()
		case <-c.done:
			return results, fmt.Errorf("client closed")
		}
	}
}

// ReadBroadcastDistributionTable reads the BDT from addr. The pending
// slot for the address is claimed before the request goes out and is
// cleared on completion, timeout, and cancellation alike.
func (c *UDPClient) ReadBroadcastDistributionTable(ctx context.Context, addr Address) ([]Address, error) {
	if !addr.IsIP() {
		return nil, fmt.Errorf("read BDT: %s is not an IP address", addr)
	}
	key := addr.Key()
	ch, err := c.bdt.register(key)
	if err != nil {
		return nil, err
	}
	if err := c.send(encodeBVLL(funcReadBDT, nil), udpAddr(addr)); err != nil {
		c.bdt.remove(key)
		return nil, err
	}
	return c.bdt.await(ctx, key, ch, c.probeTimeout)
}

// ReadForeignDeviceTable reads the FDT from addr.
func (c *UDPClient) ReadForeignDeviceTable(ctx context.Context, addr Address) ([]FDTEntry, error) {
	if !addr.IsIP() {
		return nil, fmt.Errorf("read FDT: %s is not an IP address", addr)
	}
	key := addr.Key()
	ch, err := c.fdt.register(key)
	if err != nil {
		return nil, err
	}
	if err := c.send(encodeBVLL(funcReadFDT, nil), udpAddr(addr)); err != nil {
		c.fdt.remove(key)
		return nil, err
	}
	return c.fdt.await(ctx, key, ch, c.probeTimeout)
}

// Close shuts down the receive loop and the socket.
func (c *UDPClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *UDPClient) send(frame []byte, to *net.UDPAddr) error {
	if _, err := c.conn.WriteToUDP(frame, to); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func (c *UDPClient) setIAmSink(sink chan IAm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sink != nil && c.iamSink != nil {
		return fmt.Errorf("device discovery already in progress")
	}
	c.iamSink = sink
	return nil
}

func (c *UDPClient) setRouterSink(sink chan RouterAdvert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sink != nil && c.routerSink != nil {
		return fmt.Errorf("router discovery already in progress")
	}
	c.routerSink = sink
	return nil
}

func (c *UDPClient) readLoop() {
	buf := make([]byte, 1500)
	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				log.Printf("BACnet receive error: %v", err)
				continue
			}
		}
		c.handleDatagram(buf[:n], src)
	}
}

// handleDatagram dispatches one received frame. Malformed frames are
// logged and dropped; they never abort the scan.
func (c *UDPClient) handleDatagram(datagram []byte, src *net.UDPAddr) {
	function, payload, err := decodeBVLL(datagram)
	if err != nil {
		log.Printf("Dropping frame from %s: %v", src, err)
		return
	}

	origin, ok := addressFromUDP(src)
	if !ok {
		log.Printf("Dropping frame from %s: not a BACnet/IP source", src)
		return
	}

	switch function {
	case funcReadBDTAck:
		entries, err := decodeBDTAck(payload)
		if err != nil {
			log.Printf("Dropping BDT ack from %s: %v", src, err)
			return
		}
		c.bdt.resolve(origin.Key(), entries)

	case funcReadFDTAck:
		entries, err := decodeFDTAck(payload)
		if err != nil {
			log.Printf("Dropping FDT ack from %s: %v", src, err)
			return
		}
		c.fdt.resolve(origin.Key(), entries)

	case funcResult:
		// Acknowledgement of register-foreign-device and friends.

	case funcForwardedNPDU:
		forwardedOrigin, inner, err := decodeForwardedNPDU(payload)
		if err != nil {
			log.Printf("Dropping forwarded NPDU from %s: %v", src, err)
			return
		}
		c.handleNPDU(inner, forwardedOrigin)

	case funcOriginalUnicastNPDU, funcOriginalBroadcastNPDU:
		c.handleNPDU(payload, origin)

	default:
		log.Printf("Ignoring BVLL function 0x%02x from %s", function, src)
	}
}

func (c *UDPClient) handleNPDU(buf []byte, origin Address) {
	pdu, err := decodeNPDU(buf)
	if err != nil {
		log.Printf("Dropping NPDU from %s: %v", origin, err)
		return
	}

	if pdu.isNetworkMessage {
		if pdu.messageType != msgIAmRouterToNetwork {
			return
		}
		networks, err := decodeIAmRouterToNetwork(pdu.payload)
		if err != nil {
			log.Printf("Dropping router announcement from %s: %v", origin, err)
			return
		}
		c.mu.Lock()
		sink := c.routerSink
		c.mu.Unlock()
		if sink != nil {
			select {
			case sink <- RouterAdvert{Source: origin, Networks: networks}:
			default:
				log.Printf("Router announcement from %s dropped: collector full", origin)
			}
		}
		return
	}

	if len(pdu.apdu) < 2 || pdu.apdu[0]&0xf0 != pduTypeUnconfirmed || pdu.apdu[1] != serviceIAm {
		return
	}
	iam, err := decodeIAm(pdu.apdu)
	if err != nil {
		log.Printf("Dropping I-Am from %s: %v", origin, err)
		return
	}
	// Devices behind a router answer with SNET/SADR routing info; that
	// routed address, not the forwarding router's IP, identifies them.
	if pdu.source != nil {
		iam.Source = *pdu.source
	} else {
		iam.Source = origin
	}

	c.mu.Lock()
	sink := c.iamSink
	c.mu.Unlock()
	if sink != nil {
		select {
		case sink <- iam:
		default:
			log.Printf("I-Am from %s dropped: collector full", iam.Source)
		}
	}
}

// addressFromUDP converts a datagram source to a BACnet/IP address. A
// source that is not IPv4 (or IPv4-mapped) has no BACnet/IP form and is
// reported as not ok.
func addressFromUDP(src *net.UDPAddr) (Address, bool) {
	v4 := src.IP.To4()
	if v4 == nil {
		return Address{}, false
	}
	ip, ok := netip.AddrFromSlice(v4)
	if !ok {
		return Address{}, false
	}
	return IPAddress(ip, uint16(src.Port)), true
}

func udpAddr(a Address) *net.UDPAddr {
	port := a.Port
	if port == 0 {
		port = DefaultPort
	}
	return &net.UDPAddr{IP: a.IP.AsSlice(), Port: int(port)}
}
