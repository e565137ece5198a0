package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBlockRanges(t *testing.T) {
	ranges, err := GenerateBlockRanges(100, 205, 50)
	assert.NoError(t, err)
	assert.Equal(t, []BlockRange{
		{From: 100, To: 149},
		{From: 150, To: 199},
		{From: 200, To: 205},
	}, ranges)
}

func TestGenerateBlockRangesCoverage(t *testing.T) {
	cases := []struct {
		start, end, chunkSize uint64
	}{
		{0, 0, 1},
		{1, 1, 100},
		{0, 99, 10},
		{7, 7000, 13},
		{100, 205, 50},
	}
	for _, c := range cases {
		ranges, err := GenerateBlockRanges(c.start, c.end, c.chunkSize)
		assert.NoError(t, err)
		assert.Equal(t, c.start, ranges[0].From)
		assert.Equal(t, c.end, ranges[len(ranges)-1].To)
		for i, r := range ranges {
			assert.True(t, r.To >= r.From)
			assert.True(t, r.To-r.From+1 <= c.chunkSize, "range longer than chunk size")
			if i > 0 {
				assert.Equal(t, ranges[i-1].To+1, r.From, "ranges must be contiguous and gap free")
			}
		}
	}
}

func TestGenerateBlockRangesErrors(t *testing.T) {
	_, err := GenerateBlockRanges(100, 205, 0)
	assert.Equal(t, ErrWrongChunkSize, err)

	_, err = GenerateBlockRanges(205, 100, 50)
	assert.Equal(t, ErrWrongBlockRange, err)
}
