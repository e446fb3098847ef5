// Package proxy implements the byte-transparent relay contract between
// the realm's client connections and world nodes (spec §4.5 "Proxy
// router"): any client opcode the realm does not interpret locally is
// carried to the bound world node, and back, with its body untouched.
package proxy

import (
	"encoding/binary"
	"fmt"

	"github.com/realmbroker/realmd/internal/protocol"
)

// ClientProxyPacket carries one unrecognised client opcode verbatim
// between realm and world node, in either direction (spec §4.5:
// "ClientProxyPacket(characterId, opcode, size, body)"). Body is passed
// through unchanged end to end — only the frame around it is reframed at
// each hop.
type ClientProxyPacket struct {
	CharacterID uint32
	Opcode      uint16
	Body        []byte
}

// Encode writes p into buf, returning the number of bytes written. The
// realm<->world uplink opcode byte identifying "this is a ClientProxyPacket"
// is written separately by the caller (worldlink frame codec); this only
// encodes the payload.
func Encode(buf []byte, p ClientProxyPacket) int {
	pos := 0
	binary.LittleEndian.PutUint32(buf[pos:], p.CharacterID)
	pos += 4
	binary.LittleEndian.PutUint16(buf[pos:], p.Opcode)
	pos += 2
	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(p.Body)))
	pos += 2
	copy(buf[pos:], p.Body)
	pos += len(p.Body)
	return pos
}

// Parse reads a ClientProxyPacket payload previously written by Encode.
func Parse(body []byte) (ClientProxyPacket, error) {
	r := protocol.NewReader(body)
	characterID, err := r.ReadUint32()
	if err != nil {
		return ClientProxyPacket{}, fmt.Errorf("proxy: CharacterID: %w", err)
	}
	opcode, err := r.ReadUint16()
	if err != nil {
		return ClientProxyPacket{}, fmt.Errorf("proxy: Opcode: %w", err)
	}
	size, err := r.ReadUint16()
	if err != nil {
		return ClientProxyPacket{}, fmt.Errorf("proxy: Size: %w", err)
	}
	payload, err := r.ReadBytes(int(size))
	if err != nil {
		return ClientProxyPacket{}, fmt.Errorf("proxy: Body: %w", err)
	}
	return ClientProxyPacket{CharacterID: characterID, Opcode: opcode, Body: payload}, nil
}
