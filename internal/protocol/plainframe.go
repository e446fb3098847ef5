package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadPlainFrame reads one length-prefixed, unencrypted frame (the login
// service's client-facing wire: spec §6 "Framed packets with a 1-byte
// opcode prefix"). The 2-byte little-endian prefix counts the opcode byte
// and body together. Returns the frame payload (opcode + body).
func ReadPlainFrame(r io.Reader, buf []byte) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint16(header[:])
	if int(size) > len(buf) {
		return nil, fmt.Errorf("protocol: frame too large: %d bytes (buffer %d)", size, len(buf))
	}
	payload := buf[:size]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("protocol: reading frame body: %w", err)
	}
	return payload, nil
}

// WritePlainFrame writes buf[:n] (opcode + body, no size prefix yet) as a
// length-prefixed frame. buf must have 2 spare bytes before offset 0 —
// callers build the payload starting at buf[2:] and pass n as its length.
func WritePlainFrame(w io.Writer, buf []byte, n int) error {
	binary.LittleEndian.PutUint16(buf[:2], uint16(n))
	_, err := w.Write(buf[:2+n])
	return err
}
