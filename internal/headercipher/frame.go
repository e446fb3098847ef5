package headercipher

// FrameDecoder tracks how many header bytes of the frame currently being
// assembled have already been run through the cipher, so a frame that
// arrives across several socket reads never has its header bytes decrypted
// twice (spec §4.2: "a per-frame decrypted-until offset"), and so the
// rolling cipher chain stays correct across those partial reads.
//
// One FrameDecoder belongs to exactly one RecvState / connection; it is
// reset after each complete frame.
type FrameDecoder struct {
	recv           *RecvState
	headerLen      int
	decryptedUntil int
	prevCipher     byte
}

// NewFrameDecoder binds a decoder to a RecvState and the header length for
// this decoder's direction (InboundHeaderLen for a realm reading from a
// client, or a world-link's own header length).
func NewFrameDecoder(recv *RecvState, headerLen int) *FrameDecoder {
	return &FrameDecoder{recv: recv, headerLen: headerLen}
}

// Feed is called whenever more bytes of the in-progress frame's header have
// become available in buf (buf holds the full header region; only
// buf[:available] is valid so far). It decrypts exactly the newly-arrived
// header bytes, continuing the rolling chain from where the previous call
// left off, and never re-touches bytes already ciphered. Once the header is
// fully consumed it advances the connection's rolling key exactly once.
func (d *FrameDecoder) Feed(buf []byte, available int) {
	if available <= d.decryptedUntil {
		return
	}
	end := available
	if end > d.headerLen {
		end = d.headerLen
	}
	if end <= d.decryptedUntil {
		return
	}

	if !d.recv.Enabled() {
		d.decryptedUntil = end
		return
	}

	chunk := buf[d.decryptedUntil:end]
	d.prevCipher = d.recv.decryptRollFrom(chunk, d.decryptedUntil, d.prevCipher)
	d.decryptedUntil = end

	if d.decryptedUntil == d.headerLen {
		d.recv.AdvanceKey(d.headerLen)
	}
}

// Reset prepares the decoder for the next frame. Call this once a full
// frame (header + body) has been consumed.
func (d *FrameDecoder) Reset() {
	d.decryptedUntil = 0
	d.prevCipher = 0
}
