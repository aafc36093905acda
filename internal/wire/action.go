// Package wire encodes and decodes the fixed-size datagrams exchanged
// between the operator console and the drone's flight controller.
package wire

import (
	"encoding/binary"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/region"
)

// ActionTagSize is the size in bytes of an encoded Action datagram.
const ActionTagSize = 4

// EncodeAction marshals an Action into its raw little-endian byte
// pattern, grounded on the teacher's field-by-field binary.LittleEndian
// marshaling rather than reflection-based encoding.
func EncodeAction(a region.Action) []byte {
	buf := make([]byte, ActionTagSize)
	binary.LittleEndian.PutUint32(buf, uint32(a))
	return buf
}

// DecodeAction unmarshals a raw command datagram into an Action. The
// datagram's length must equal ActionTagSize exactly; any other size is
// a malformed datagram and is rejected rather than silently truncated or
// zero-padded, matching "other sizes are ignored" from the wire format.
func DecodeAction(buf []byte) (region.Action, error) {
	if len(buf) != ActionTagSize {
		return 0, droned.WrapError("decode", "", droned.ErrBadSize)
	}
	return region.Action(binary.LittleEndian.Uint32(buf)), nil
}
