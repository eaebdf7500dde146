package bacnet

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// BVLL function codes (BACnet/IP, type octet 0x81).
const (
	bvllType = 0x81

	funcResult                = 0x00
	funcReadBDT               = 0x02
	funcReadBDTAck            = 0x03
	funcForwardedNPDU         = 0x04
	funcRegisterForeignDevice = 0x05
	funcReadFDT               = 0x06
	funcReadFDTAck            = 0x07
	funcOriginalUnicastNPDU   = 0x0a
	funcOriginalBroadcastNPDU = 0x0b
)

// encodeBVLL frames a payload with the 4-octet BVLL header. The length
// field covers the header itself.
func encodeBVLL(function byte, payload []byte) []byte {
	buf := make([]byte, 4, 4+len(payload))
	buf[0] = bvllType
	buf[1] = function
	binary.BigEndian.PutUint16(buf[2:], uint16(4+len(payload)))
	return append(buf, payload...)
}

// decodeBVLL strips and validates the BVLL header.
func decodeBVLL(datagram []byte) (function byte, payload []byte, err error) {
	if len(datagram) < 4 || datagram[0] != bvllType {
		return 0, nil, fmt.Errorf("not a BVLL frame")
	}
	length := int(binary.BigEndian.Uint16(datagram[2:4]))
	if length != len(datagram) {
		return 0, nil, fmt.Errorf("BVLL length %d disagrees with datagram length %d", length, len(datagram))
	}
	return datagram[1], datagram[4:], nil
}

func encodeRegisterForeignDevice(ttl uint16) []byte {
	return encodeBVLL(funcRegisterForeignDevice, binary.BigEndian.AppendUint16(nil, ttl))
}

// decodeBDTAck parses a Read-Broadcast-Distribution-Table-Ack: a sequence
// of 10-octet entries (IP, port, broadcast distribution mask).
func decodeBDTAck(payload []byte) ([]Address, error) {
	if len(payload)%10 != 0 {
		return nil, fmt.Errorf("BDT ack: payload length %d is not a multiple of 10", len(payload))
	}
	entries := make([]Address, 0, len(payload)/10)
	for i := 0; i < len(payload); i += 10 {
		ip, _ := netip.AddrFromSlice(payload[i : i+4])
		port := binary.BigEndian.Uint16(payload[i+4 : i+6])
		// Octets i+6..i+10 carry the distribution mask, which the
		// topology model does not record.
		entries = append(entries, IPAddress(ip, port))
	}
	return entries, nil
}

// decodeFDTAck parses a Read-Foreign-Device-Table-Ack: 10-octet entries
// of IP, port, registered TTL, and seconds remaining.
func decodeFDTAck(payload []byte) ([]FDTEntry, error) {
	if len(payload)%10 != 0 {
		return nil, fmt.Errorf("FDT ack: payload length %d is not a multiple of 10", len(payload))
	}
	entries := make([]FDTEntry, 0, len(payload)/10)
	for i := 0; i < len(payload); i += 10 {
		ip, _ := netip.AddrFromSlice(payload[i : i+4])
		port := binary.BigEndian.Uint16(payload[i+4 : i+6])
		entries = append(entries, FDTEntry{
			Address:   IPAddress(ip, port),
			TTL:       binary.BigEndian.Uint16(payload[i+6 : i+8]),
			Remaining: binary.BigEndian.Uint16(payload[i+8 : i+10]),
		})
	}
	return entries, nil
}

// decodeForwardedNPDU splits a Forwarded-NPDU into the originating B/IP
// address and the inner NPDU.
func decodeForwardedNPDU(payload []byte) (Address, []byte, error) {
	if len(payload) < 6 {
		return Address{}, nil, fmt.Errorf("forwarded NPDU: truncated originating address")
	}
	ip, _ := netip.AddrFromSlice(payload[:4])
	port := binary.BigEndian.Uint16(payload[4:6])
	return IPAddress(ip, port), payload[6:], nil
}
