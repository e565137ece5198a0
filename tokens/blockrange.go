package tokens

// BlockRange a closed interval of block heights
type BlockRange struct {
	From uint64
	To   uint64
}

// GenerateBlockRanges split [start, end] into contiguous closed intervals
// of at most chunkSize blocks, to bound RPC payload size and retry
// granularity. Errors on chunkSize == 0 or start > end.
func GenerateBlockRanges(start, end, chunkSize uint64) ([]BlockRange, error) {
	if chunkSize == 0 {
		return nil, ErrWrongChunkSize
	}
	if start > end {
		return nil, ErrWrongBlockRange
	}
	ranges := make([]BlockRange, 0, (end-start)/chunkSize+1)
	for from := start; from <= end; from += chunkSize {
		to := from + chunkSize - 1
		if to > end {
			to = end
		}
		ranges = append(ranges, BlockRange{From: from, To: to})
		if to == ^uint64(0) {
			break
		}
	}
	return ranges, nil
}
