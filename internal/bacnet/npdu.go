package bacnet

import (
	"encoding/binary"
	"fmt"
)

// NPDU control bits and network message types.
const (
	npduVersion = 0x01

	ctrlNetworkMessage = 0x80
	ctrlDestPresent    = 0x20
	ctrlSourcePresent  = 0x08

	globalBroadcastNet = 0xffff

	msgWhoIsRouterToNetwork = 0x00
	msgIAmRouterToNetwork   = 0x01
)

// npdu is a decoded network-layer PDU. Exactly one of apdu or message is
// meaningful, discriminated by isNetworkMessage.
type npdu struct {
	isNetworkMessage bool
	messageType      byte
	payload          []byte // network message payload
	apdu             []byte

	// source is set when the PDU carried SNET/SADR routing information,
	// i.e. it originated behind a router.
	source *Address
}

// encodeGlobalBroadcastNPDU wraps an APDU for a global broadcast: DNET
// 0xFFFF, no DADR, full hop count.
func encodeGlobalBroadcastNPDU(apdu []byte) []byte {
	buf := []byte{npduVersion, ctrlDestPresent}
	buf = binary.BigEndian.AppendUint16(buf, globalBroadcastNet)
	buf = append(buf, 0x00) // DLEN 0: broadcast
	buf = append(buf, 0xff) // hop count
	return append(buf, apdu...)
}

// encodeWhoIsRouterToNetwork builds the network-layer Who-Is-Router-To-
// Network message scoped to one network.
func encodeWhoIsRouterToNetwork(network uint16) []byte {
	buf := []byte{npduVersion, ctrlNetworkMessage | ctrlDestPresent}
	buf = binary.BigEndian.AppendUint16(buf, globalBroadcastNet)
	buf = append(buf, 0x00)
	buf = append(buf, 0xff)
	buf = append(buf, msgWhoIsRouterToNetwork)
	return binary.BigEndian.AppendUint16(buf, network)
}

// decodeNPDU parses an incoming NPDU, skipping destination routing
// fields and capturing source routing fields when present.
func decodeNPDU(buf []byte) (*npdu, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("truncated NPDU")
	}
	if buf[0] != npduVersion {
		return nil, fmt.Errorf("unsupported NPDU version %d", buf[0])
	}
	control := buf[1]
	buf = buf[2:]

	destPresent := control&ctrlDestPresent != 0
	if destPresent {
		if len(buf) < 3 {
			return nil, fmt.Errorf("truncated NPDU destination")
		}
		dlen := int(buf[2])
		if len(buf) < 3+dlen {
			return nil, fmt.Errorf("truncated NPDU destination address")
		}
		buf = buf[3+dlen:]
	}

	out := &npdu{}
	if control&ctrlSourcePresent != 0 {
		if len(buf) < 3 {
			return nil, fmt.Errorf("truncated NPDU source")
		}
		snet := binary.BigEndian.Uint16(buf[:2])
		slen := int(buf[2])
		if len(buf) < 3+slen {
			return nil, fmt.Errorf("truncated NPDU source address")
		}
		addr := RemoteAddress(snet, buf[3:3+slen])
		out.source = &addr
		buf = buf[3+slen:]
	}

	if destPresent {
		if len(buf) < 1 {
			return nil, fmt.Errorf("truncated NPDU hop count")
		}
		buf = buf[1:]
	}

	if control&ctrlNetworkMessage != 0 {
		if len(buf) < 1 {
			return nil, fmt.Errorf("truncated network message")
		}
		out.isNetworkMessage = true
		out.messageType = buf[0]
		out.payload = buf[1:]
		return out, nil
	}

	out.apdu = buf
	return out, nil
}

// decodeIAmRouterToNetwork parses the network list from an
// I-Am-Router-To-Network payload.
func decodeIAmRouterToNetwork(payload []byte) ([]uint16, error) {
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("I-Am-Router-To-Network: odd payload length %d", len(payload))
	}
	networks := make([]uint16, 0, len(payload)/2)
	for i := 0; i < len(payload); i += 2 {
		networks = append(networks, binary.BigEndian.Uint16(payload[i:i+2]))
	}
	return networks, nil
}
