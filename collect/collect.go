/*
Package collect assembles the backtest dataset: historical blocks, downloaded
page by page from a remote API and cached in a BlockDB, and daily reference
gas prices read from a CSV export.
*/
package collect

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/frankdfr96/MEVresearch/sim"
)

// Average block time in seconds, used to work out how many pages of blocks
// cover DaysBack days.
const blockTime = 13

type Config struct {
	// Number of the block to page back from; empty for the latest block.
	LastBlock string `yaml:"lastblock" json:"lastblock"`

	DaysBack float64 `yaml:"daysback" json:"daysback"`
	PageSize int     `yaml:"pagesize" json:"pagesize"`

	// Etherscan average gas price CSV export, and the date window (YYYY-MM-DD,
	// inclusive) of the reference prices to use.
	PricesFile string `yaml:"pricesfile" json:"pricesfile"`
	PriceStart string `yaml:"pricestart" json:"pricestart"`
	PriceEnd   string `yaml:"priceend" json:"priceend"`

	GetPage BlockPageGetter `yaml:"-" json:"-"`
	Logger  *log.Logger     `yaml:"-" json:"-"`
}

type Loader struct {
	db  BlockDB
	cfg Config
}

func NewLoader(db BlockDB, cfg Config) *Loader {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Loader{db: db, cfg: cfg}
}

// Load returns the dataset, from the cache if it was downloaded before.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	blocks, err := l.LoadBlocks(ctx)
	if err != nil {
		return nil, err
	}
	d := &Dataset{Blocks: blocks}
	if l.cfg.PricesFile == "" {
		l.cfg.Logger.Println("[WARNING] No reference prices file; the hybrid gas fee will not be floored.")
	} else {
		start, end, err := parseWindow(l.cfg.PriceStart, l.cfg.PriceEnd)
		if err != nil {
			return nil, err
		}
		if d.Prices, err = LoadPricesFile(l.cfg.PricesFile, start, end); err != nil {
			return nil, err
		}
	}
	l.cfg.Logger.Printf("Loaded %s.", d)
	return d, nil
}

// LoadBlocks returns the blocks with nonzero miner reward, oldest first.
func (l *Loader) LoadBlocks(ctx context.Context) ([]sim.Block, error) {
	logger := l.cfg.Logger

	// The latest blocks change, so only datasets with a fixed last block
	// are looked up in the cache.
	var (
		blocks []sim.Block
		ok     bool
	)
	if l.cfg.LastBlock != "" {
		key := l.datasetKey(l.cfg.LastBlock)
		first, last, found, err := l.db.GetDataset(key)
		if err != nil {
			return nil, fmt.Errorf("BlockDB.GetDataset: %v", err)
		}
		if found {
			blocks, err = l.db.Get(first, last)
			if err != nil {
				return nil, fmt.Errorf("BlockDB.Get: %v", err)
			}
			if n := len(blocks); n == 0 || blocks[0].Number != first || blocks[n-1].Number != last {
				logger.Printf("[WARNING] Cached dataset %s is incomplete; downloading.", key)
				if err := l.db.DeleteDataset(key); err != nil {
					return nil, fmt.Errorf("BlockDB.DeleteDataset: %v", err)
				}
				if err := l.db.Delete(first, last); err != nil {
					return nil, fmt.Errorf("BlockDB.Delete: %v", err)
				}
			} else {
				logger.Printf("Dataset %s loaded from cache (blocks %d to %d).", key, first, last)
				ok = true
			}
		}
	}
	if !ok {
		var err error
		if blocks, err = l.download(ctx); err != nil {
			return nil, err
		}
		if err := l.db.Put(blocks); err != nil {
			return nil, fmt.Errorf("BlockDB.Put: %v", err)
		}
		first, last := blocks[0].Number, blocks[len(blocks)-1].Number
		lastBlock := l.cfg.LastBlock
		if lastBlock == "" {
			lastBlock = strconv.FormatUint(last+1, 10)
		}
		key := l.datasetKey(lastBlock)
		if err := l.db.PutDataset(key, first, last); err != nil {
			return nil, fmt.Errorf("BlockDB.PutDataset: %v", err)
		}
		logger.Printf("Dataset cached as %s.", key)
	}

	var rewarded []sim.Block
	for _, b := range blocks {
		if b.Reward > 0 {
			rewarded = append(rewarded, b)
		}
	}
	if len(rewarded) == 0 {
		return nil, sim.InputError{Reason: "no blocks with nonzero miner reward"}
	}
	return rewarded, nil
}

// download fetches the pages of blocks, returning them oldest first.
func (l *Loader) download(ctx context.Context) ([]sim.Block, error) {
	logger := l.cfg.Logger
	if l.cfg.GetPage == nil {
		return nil, fmt.Errorf("no block source configured")
	}
	var before uint64
	if l.cfg.LastBlock != "" {
		var err error
		if before, err = strconv.ParseUint(l.cfg.LastBlock, 10, 64); err != nil {
			return nil, fmt.Errorf("lastblock: %v", err)
		}
	}

	n := NumPages(l.cfg.DaysBack, l.cfg.PageSize)
	var blocks []sim.Block
	for i := 0; i < n; i++ {
		page, err := l.cfg.GetPage(ctx, before)
		if err != nil {
			return nil, fmt.Errorf("page %d/%d: %w", i+1, n, err)
		}
		var added int
		for _, b := range page {
			if before == 0 || b.Number < before {
				blocks = append(blocks, b)
				added++
			}
		}
		logger.Printf("[DEBUG] Page %d/%d: %d new blocks before %d.", i+1, n, added, before)
		if added == 0 {
			logger.Printf("[WARNING] No more blocks before %d; stopping after %d pages.", before, i+1)
			break
		}
		before = blocks[len(blocks)-1].Number
	}
	if len(blocks) == 0 {
		return nil, sim.InputError{Reason: "no blocks downloaded"}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Number < blocks[j].Number })
	logger.Printf("Downloaded %d blocks (%d to %d).", len(blocks), blocks[0].Number, blocks[len(blocks)-1].Number)
	return blocks, nil
}

// datasetKey identifies a dataset by the block it pages back from and the
// number of days it spans.
func (l *Loader) datasetKey(lastBlock string) string {
	return fmt.Sprintf("%s/%g/%d", lastBlock, l.cfg.DaysBack, l.cfg.PageSize)
}

// NumPages returns the number of pages of pageSize blocks which span daysBack
// days; at least 1.
func NumPages(daysBack float64, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	daysPerPage := float64(pageSize) * blockTime / (24 * 3600)
	n := int(daysBack / daysPerPage)
	if n < 1 {
		n = 1
	}
	return n
}

func fmtDataset(d *Dataset) string {
	return fmt.Sprintf("Dataset{blocks: %d (%d to %d), prices: %d}",
		len(d.Blocks), d.Blocks[0].Number, d.Blocks[len(d.Blocks)-1].Number, len(d.Prices))
}
