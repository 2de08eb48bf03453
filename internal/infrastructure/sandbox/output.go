package sandbox

import "bytes"

// MaxOutputBytes caps each of stdout and stderr.
const MaxOutputBytes = 1 << 20

const truncatedNote = "\n[output truncated]"

// cappedBuffer keeps the first limit bytes and silently drops the rest. It
// always reports a full write so the child is never blocked on a full pipe.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	if limit <= 0 {
		limit = MaxOutputBytes
	}
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncatedNote
	}
	return b.buf.String()
}
