package collect

import (
	"context"

	"github.com/frankdfr96/MEVresearch/sim"
	"github.com/frankdfr96/MEVresearch/units"
)

// BlockPageGetter returns the page of blocks preceding block number before
// (or the latest page, if before is 0), newest block first.
type BlockPageGetter func(ctx context.Context, before uint64) ([]sim.Block, error)

type BlockDB interface {
	Get(start, end uint64) ([]sim.Block, error)
	Put(blocks []sim.Block) error
	GetDataset(key string) (first, last uint64, ok bool, err error)
	Delete(start, end uint64) error
	PutDataset(key string, first, last uint64) error
	DeleteDataset(key string) error
}

// Dataset is the immutable input to a backtest.
type Dataset struct {
	Blocks []sim.Block  `json:"blocks"` // Oldest first
	Prices []units.Gwei `json:"prices"` // Daily reference gas prices
}

func (d *Dataset) Rewards() []units.Eth {
	r := make([]units.Eth, len(d.Blocks))
	for i, b := range d.Blocks {
		r[i] = b.Reward.Eth()
	}
	return r
}

func (d *Dataset) GasUsed() []units.Gas {
	g := make([]units.Gas, len(d.Blocks))
	for i, b := range d.Blocks {
		g[i] = b.GasUsed
	}
	return g
}

// Pricer returns the reference gas price source for the hybrid sim. Without
// reference prices, the gas fee is not floored.
func (d *Dataset) Pricer() (sim.ReferencePricer, error) {
	if d.Prices == nil {
		return sim.ConstantPrice(0), nil
	}
	return sim.NewPriceMapper(d.Blocks, d.Prices)
}

func (d *Dataset) String() string {
	if len(d.Blocks) == 0 {
		return "Dataset{empty}"
	}
	return fmtDataset(d)
}
