package mqtt

import "github.com/rs/zerolog/log"

// message is a serialized MQTT publish held for replay after reconnection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []message
	head     int // next write position
	count    int
	overflow bool // a message was dropped since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]message, capacity)}
}

// push appends msg, overwriting the oldest message when full.
func (r *ringBuffer) push(msg message) {
	capacity := len(r.buf)
	r.buf[r.head] = msg
	r.head = (r.head + 1) % capacity
	if r.count < capacity {
		r.count++
		return
	}
	if !r.overflow {
		log.Warn().Int("capacity", capacity).Msg("mqtt buffer full, dropping oldest")
		r.overflow = true
	}
}

// drain removes and returns every message, oldest first.
func (r *ringBuffer) drain() []message {
	if r.count == 0 {
		return nil
	}
	capacity := len(r.buf)
	out := make([]message, r.count)
	start := (r.head - r.count + capacity) % capacity
	for i := range out {
		out[i] = r.buf[(start+i)%capacity]
	}
	r.count = 0
	r.head = 0
	r.overflow = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
