package realmlink

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/crypto"
)

// WritePacket appends a checksum, pads to the Blowfish block size, encrypts
// in place and writes the length-prefixed frame (same wire shape as the
// teacher's GS↔LS uplink protocol).
func WritePacket(w io.Writer, cipher *crypto.BlowfishCipher, buf []byte, payloadLen int) error {
	const headerSize = constants.PacketHeaderSize
	if payloadLen < 0 || payloadLen > len(buf)-headerSize-16 {
		return fmt.Errorf("realmlink: invalid payload length %d", payloadLen)
	}

	dataSize := payloadLen + constants.PacketChecksumSize
	padding := (constants.BlowfishBlockSize - (dataSize % constants.BlowfishBlockSize)) % constants.BlowfishBlockSize
	encryptedSize := dataSize + padding

	crypto.AppendChecksum(buf, headerSize, encryptedSize)
	if err := cipher.Encrypt(buf, headerSize, encryptedSize); err != nil {
		return fmt.Errorf("realmlink: encrypting packet: %w", err)
	}

	totalSize := headerSize + encryptedSize
	binary.LittleEndian.PutUint16(buf[:headerSize], uint16(totalSize))

	if _, err := w.Write(buf[:totalSize]); err != nil {
		return fmt.Errorf("realmlink: writing packet: %w", err)
	}
	return nil
}

// ReadPacket reads one frame from r into buf, decrypts and checksum-verifies
// it, and returns the payload (without checksum or padding).
func ReadPacket(r io.Reader, cipher *crypto.BlowfishCipher, buf []byte) ([]byte, error) {
	var header [constants.PacketHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("realmlink: reading packet header: %w", err)
	}

	totalLen := binary.LittleEndian.Uint16(header[:])
	if int(totalLen) < constants.PacketHeaderSize {
		return nil, fmt.Errorf("realmlink: invalid packet length %d", totalLen)
	}

	encryptedSize := int(totalLen) - constants.PacketHeaderSize
	if encryptedSize > len(buf) {
		return nil, fmt.Errorf("realmlink: packet too large: %d bytes (buffer %d)", encryptedSize, len(buf))
	}

	payload := buf[:encryptedSize]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("realmlink: reading encrypted payload: %w", err)
	}

	if err := cipher.Decrypt(buf, 0, encryptedSize); err != nil {
		return nil, fmt.Errorf("realmlink: decrypting payload: %w", err)
	}

	if !crypto.VerifyChecksum(buf, 0, encryptedSize) {
		return nil, fmt.Errorf("realmlink: checksum verification failed")
	}

	payloadLen := encryptedSize - constants.PacketChecksumSize
	return buf[:payloadLen], nil
}
