package bacnet

import (
	"encoding/binary"
	"fmt"
)

// APDU constants for the two unconfirmed services the scanner exchanges.
const (
	pduTypeUnconfirmed = 0x10

	serviceIAm   = 0x00
	serviceWhoIs = 0x08

	objectTypeDevice = 8
)

// encodeWhoIs builds the Who-Is APDU for an inclusive device instance
// range. Limits are context-tagged unsigned values (tags 0 and 1).
func encodeWhoIs(low, high uint32) []byte {
	apdu := []byte{pduTypeUnconfirmed, serviceWhoIs}
	apdu = appendContextUnsigned(apdu, 0, low)
	apdu = appendContextUnsigned(apdu, 1, high)
	return apdu
}

// appendContextUnsigned appends a context-tagged unsigned integer using
// the minimal number of octets.
func appendContextUnsigned(buf []byte, tag byte, v uint32) []byte {
	var octets []byte
	switch {
	case v < 1<<8:
		octets = []byte{byte(v)}
	case v < 1<<16:
		octets = []byte{byte(v >> 8), byte(v)}
	case v < 1<<24:
		octets = []byte{byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		octets = []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
	buf = append(buf, tag<<4|0x08|byte(len(octets)))
	return append(buf, octets...)
}

// decodeIAm parses an I-Am APDU: device object identifier, max APDU
// length, segmentation support, and vendor identifier, all
// application-tagged.
func decodeIAm(apdu []byte) (IAm, error) {
	var iam IAm
	if len(apdu) < 2 || apdu[0]&0xf0 != pduTypeUnconfirmed || apdu[1] != serviceIAm {
		return iam, fmt.Errorf("not an I-Am APDU")
	}
	buf := apdu[2:]

	// Device object identifier, application tag 12 (BACnetObjectIdentifier).
	tag, val, rest, err := readAppTag(buf)
	if err != nil {
		return iam, err
	}
	if tag != 12 || len(val) != 4 {
		return iam, fmt.Errorf("I-Am: expected object identifier, got tag %d", tag)
	}
	objID := binary.BigEndian.Uint32(val)
	if objID>>22 != objectTypeDevice {
		return iam, fmt.Errorf("I-Am: object type %d is not a device", objID>>22)
	}
	iam.DeviceID = objID & 0x3fffff

	// Max APDU length accepted, unsigned.
	tag, val, rest, err = readAppTag(rest)
	if err != nil {
		return iam, err
	}
	if tag != 2 {
		return iam, fmt.Errorf("I-Am: expected unsigned max-APDU, got tag %d", tag)
	}
	iam.MaxAPDU = uint16(decodeUnsigned(val))

	// Segmentation supported, enumerated.
	tag, val, rest, err = readAppTag(rest)
	if err != nil {
		return iam, err
	}
	if tag != 9 {
		return iam, fmt.Errorf("I-Am: expected enumerated segmentation, got tag %d", tag)
	}
	iam.Segmentation = byte(decodeUnsigned(val))

	// Vendor identifier, unsigned.
	tag, val, _, err = readAppTag(rest)
	if err != nil {
		return iam, err
	}
	if tag != 2 {
		return iam, fmt.Errorf("I-Am: expected unsigned vendor id, got tag %d", tag)
	}
	iam.VendorID = uint16(decodeUnsigned(val))

	return iam, nil
}

// readAppTag reads one application-tagged primitive value. Extended
// lengths beyond 253 octets do not occur in the PDUs the scanner parses.
func readAppTag(buf []byte) (tag byte, value []byte, rest []byte, err error) {
	if len(buf) == 0 {
		return 0, nil, nil, fmt.Errorf("truncated tag")
	}
	octet := buf[0]
	if octet&0x08 != 0 {
		return 0, nil, nil, fmt.Errorf("unexpected context tag 0x%02x", octet)
	}
	tag = octet >> 4
	length := int(octet & 0x07)
	buf = buf[1:]
	if length == 5 {
		if len(buf) == 0 {
			return 0, nil, nil, fmt.Errorf("truncated extended length")
		}
		length = int(buf[0])
		buf = buf[1:]
	}
	if len(buf) < length {
		return 0, nil, nil, fmt.Errorf("truncated value: need %d octets, have %d", length, len(buf))
	}
	return tag, buf[:length], buf[length:], nil
}

func decodeUnsigned(octets []byte) uint32 {
	var v uint32
	for _, b := range octets {
		v = v<<8 | uint32(b)
	}
	return v
}
