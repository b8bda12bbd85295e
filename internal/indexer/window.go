package indexer

// MaxWindowSize caps the number of blocks requested per crawl cycle.
const MaxWindowSize uint64 = 10_000

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Inverted reports whether From is past To.
func (r BlockRange) Inverted() bool {
	return r.From > r.To
}

// ComputeWindow returns the next range to fetch for a checkpoint at lastSynced with chain head at head.
//
// An initial checkpoint (0) yields {From: head, To: 0}. The inverted range is forwarded
// to the RPC endpoint unchanged and whatever it answers is taken as the result.
func ComputeWindow(lastSynced, head uint64) BlockRange {
	if lastSynced == 0 {
		return BlockRange{From: head, To: 0}
	}
	to := lastSynced + MaxWindowSize
	if head < to {
		to = head
	}
	return BlockRange{From: lastSynced + 1, To: to}
}
