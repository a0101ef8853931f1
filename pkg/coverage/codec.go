package coverage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/graphbio/unicov/pkg/safeconv"
)

// Snapshot wire format:
//
//	uint32  decoded payload size
//	uint8   codec (codecRaw or codecLZ4)
//	...     payload, LZ4 block compressed unless raw
//
// and the decoded payload:
//
//	uint32  counter count
//	uint8   flags (snapFlagFull)
//	...     counters packed 4 per byte, absent when full
//
// The payload is layout-independent: restoring re-selects the physical
// layout from the decoded count.
const (
	codecRaw = 0
	codecLZ4 = 1

	snapFlagFull = 1

	snapPrefixBytes  = 5
	payloadHeadBytes = 5
)

// Sentinel errors for snapshot decoding.
var (
	ErrSnapshotTooShort = errors.New("coverage: snapshot too short")
	ErrSnapshotCorrupt  = errors.New("coverage: snapshot corrupt")
)

// Snapshot serializes the store into a compressed, layout-independent
// byte form suitable for checkpointing construction state.
func (s *Store) Snapshot() ([]byte, error) {
	n := s.Size()

	payload := make([]byte, payloadHeadBytes, payloadHeadBytes+packedBytes(n))
	binary.LittleEndian.PutUint32(payload[0:4], safeconv.MustIntToUint32(n))

	if s.IsFull() {
		payload[4] = snapFlagFull
	} else {
		packed := make([]byte, packedBytes(n))
		for i := range n {
			packed[i/countersPerByte] |= s.CovAt(i) << heapShift(i)
		}

		payload = append(payload, packed...)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))

	written, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("coverage: compress snapshot: %w", err)
	}

	out := make([]byte, snapPrefixBytes)
	binary.LittleEndian.PutUint32(out[0:4], safeconv.MustIntToUint32(len(payload)))

	// CompressBlock reports zero when the input is incompressible; tiny
	// payloads are stored raw.
	if written == 0 || written >= len(payload) {
		out[4] = codecRaw

		return append(out, payload...), nil
	}

	out[4] = codecLZ4

	return append(out, compressed[:written]...), nil
}

// Restore deserializes a snapshot produced by Snapshot into a fresh store.
// The restored store is observably identical to the snapshotted one: same
// Size, IsFull and CovAt for every position.
func Restore(data []byte) (*Store, error) {
	if len(data) < snapPrefixBytes {
		return nil, ErrSnapshotTooShort
	}

	payloadLen := int(binary.LittleEndian.Uint32(data[0:4]))
	body := data[snapPrefixBytes:]

	var payload []byte

	switch data[4] {
	case codecRaw:
		if len(body) != payloadLen {
			return nil, ErrSnapshotCorrupt
		}

		payload = body
	case codecLZ4:
		payload = make([]byte, payloadLen)

		decoded, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
		}

		if decoded != payloadLen {
			return nil, ErrSnapshotCorrupt
		}
	default:
		return nil, ErrSnapshotCorrupt
	}

	if len(payload) < payloadHeadBytes {
		return nil, ErrSnapshotTooShort
	}

	n := int(binary.LittleEndian.Uint32(payload[0:4]))
	full := payload[4]&snapFlagFull != 0

	s := New(n, full)
	if full {
		return s, nil
	}

	packed := payload[payloadHeadBytes:]
	if len(packed) != packedBytes(n) {
		return nil, ErrSnapshotCorrupt
	}

	saturated := uint32(0)

	for i := range n {
		v := packed[i/countersPerByte] >> heapShift(i) & counterMask
		if v > Full {
			return nil, ErrSnapshotCorrupt
		}

		if v == Full {
			saturated++
		}

		s.setRaw(i, v)
	}

	if s.buf != nil {
		binary.LittleEndian.PutUint32(s.buf[headerSaturatedOff:], saturated)
	}

	return s, nil
}
