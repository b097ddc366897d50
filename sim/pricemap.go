package sim

import (
	"fmt"

	"github.com/frankdfr96/MEVresearch/units"
)

// ReferencePricer gives the reference gas price applicable to a block.
type ReferencePricer interface {
	Price(number uint64) units.Gwei
}

// ConstantPrice is a ReferencePricer which returns the same price for every
// block.
type ConstantPrice units.Gwei

func (p ConstantPrice) Price(number uint64) units.Gwei {
	return units.Gwei(p)
}

// PriceMapper maps blocks onto a series of daily reference gas prices.
//
// Blocks and price entries are assumed to be spread evenly over the same
// date range, so a block's position within the block number range of the
// dataset is mapped linearly onto the index range of the price series. No
// date matching is done.
type PriceMapper struct {
	first, last uint64
	prices      []units.Gwei
}

func NewPriceMapper(blocks []Block, prices []units.Gwei) (*PriceMapper, error) {
	if len(blocks) == 0 {
		return nil, InputError{"empty block sequence"}
	}
	if len(prices) == 0 {
		return nil, InputError{"empty reference price sequence"}
	}
	for i, p := range prices {
		if !nonNegative(float64(p)) {
			return nil, InputError{fmt.Sprintf("reference price %d is %v", i, p)}
		}
	}
	m := &PriceMapper{
		first:  blocks[0].Number,
		last:   blocks[len(blocks)-1].Number,
		prices: prices,
	}
	if m.last < m.first {
		return nil, InputError{"blocks are not in increasing order"}
	}
	return m, nil
}

// Index returns the index into the reference price series for the given
// block number. Numbers outside the dataset range map to the nearest end.
// A nil mapper has no prices and returns -1.
func (m *PriceMapper) Index(number uint64) int {
	if m == nil {
		return -1
	}
	n := len(m.prices)
	switch {
	case m.last == m.first, number <= m.first:
		// Also covers the single block dataset
		return 0
	case number >= m.last:
		return n - 1
	}
	i := int(float64(n-1) * float64(number-m.first) / float64(m.last-m.first))
	if i > n-1 {
		i = n - 1
	}
	return i
}

// Price returns the reference price for the given block number, or zero if
// the mapper is nil.
func (m *PriceMapper) Price(number uint64) units.Gwei {
	if m == nil {
		return 0
	}
	return m.prices[m.Index(number)]
}
