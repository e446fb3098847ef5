package realm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/realmbroker/realmd/internal/headercipher"
)

// The realm's client-facing wire differs from the login service's plain
// little-endian length prefix (internal/protocol.ReadPlainFrame): the
// size field is big-endian, and the header itself is enciphered once
// AuthSession completes (spec §4.2, §6 "Realm client-facing wire").
//
// Inbound (client->realm) header, 4 bytes: size (uint16 BE, counts the
// 2 opcode bytes plus body) + opcode (uint16 LE).
//
// Outbound (realm->client) header, 5 bytes: size (uint16 BE, counts the
// opcode byte, 2 reserved bytes, and body) + opcode (1 byte) + 2
// reserved bytes (always zero; room for a future extended-opcode range).
const (
	inboundHeaderLen  = headercipher.InboundHeaderLen
	outboundHeaderLen = headercipher.OutboundHeaderLen
)

// readClientFrame reads one client->realm frame, deciphering its header
// through decoder/recv before the size and opcode can be parsed. Returns
// the opcode and the (always cleartext) body.
func readClientFrame(r io.Reader, recv *headercipher.RecvState, decoder *headercipher.FrameDecoder, headerBuf []byte, bodyBuf []byte) (uint16, []byte, error) {
	header := headerBuf[:inboundHeaderLen]
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	decoder.Feed(header, inboundHeaderLen)
	decoder.Reset()

	size := binary.BigEndian.Uint16(header[0:2])
	opcode := binary.LittleEndian.Uint16(header[2:4])
	if int(size) < 2 {
		return 0, nil, fmt.Errorf("realm: invalid frame size %d", size)
	}
	bodyLen := int(size) - 2
	if bodyLen > len(bodyBuf) {
		return 0, nil, fmt.Errorf("realm: frame body too large: %d bytes (buffer %d)", bodyLen, len(bodyBuf))
	}
	body := bodyBuf[:bodyLen]
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("realm: reading frame body: %w", err)
	}
	return opcode, body, nil
}

// encodeClientFrame fills buf[:outboundHeaderLen+len(payload)] with a
// realm->client frame and enciphers its header, if send is non-nil and
// enabled. buf must have outboundHeaderLen spare bytes before the
// payload, already placed at buf[outboundHeaderLen:].
func encodeClientFrame(buf []byte, send *headercipher.SendState, opcode byte, payloadLen int) int {
	total := outboundHeaderLen + payloadLen
	header := buf[:outboundHeaderLen]
	size := uint16(1 + 2 + payloadLen) // opcode + 2 reserved bytes + body
	binary.BigEndian.PutUint16(header[0:2], size)
	header[2] = opcode
	header[3] = 0
	header[4] = 0

	if send != nil {
		send.EncryptHeader(header)
	}
	return total
}
