package storage

import "errors"

// Records expected per fetched match
const ParticipantsPerMatch = 10

// ErrBufferFull is returned by TierBuffer.Add once the bound is reached
var ErrBufferFull = errors.New("tier buffer full")

// TierBuffer accumulates one tier's records until the tier walk ends.
// It is bounded so a misbehaving upstream cannot grow it without limit.
type TierBuffer struct {
	tier     string
	records  []ParticipantRecord
	capacity int
	dropped  int
}

// BufferCapacity is the largest table a tier walk can legitimately produce
func BufferCapacity(divisions, playersPerBracket, matchesPerPlayer int) int {
	return divisions * playersPerBracket * matchesPerPlayer * ParticipantsPerMatch
}

// NewTierBuffer creates an empty buffer for tier. capacity <= 0 means unbounded.
func NewTierBuffer(tier string, capacity int) *TierBuffer {
	return &TierBuffer{
		tier:     tier,
		capacity: capacity,
	}
}

// Add appends rec, or drops it and returns ErrBufferFull
func (b *TierBuffer) Add(rec ParticipantRecord) error {
	if b.capacity > 0 && len(b.records) >= b.capacity {
		b.dropped++
		return ErrBufferFull
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *TierBuffer) Tier() string { return b.tier }

func (b *TierBuffer) Len() int { return len(b.records) }

// Dropped is the number of records rejected since the last Reset
func (b *TierBuffer) Dropped() int { return b.dropped }

// Records returns the buffered records in insertion order
func (b *TierBuffer) Records() []ParticipantRecord {
	return b.records
}

// Reset empties the buffer and rebinds it to a new tier
func (b *TierBuffer) Reset(tier string) {
	b.tier = tier
	b.records = nil
	b.dropped = 0
}
