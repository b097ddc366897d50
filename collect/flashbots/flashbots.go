// Package flashbots implements the block page getter of package collect with
// the Flashbots blocks API.
package flashbots

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"

	col "github.com/frankdfr96/MEVresearch/collect"
	"github.com/frankdfr96/MEVresearch/sim"
	"github.com/frankdfr96/MEVresearch/units"
)

const DefaultURL = "https://blocks.flashbots.net/v1/blocks"

type Config struct {
	URL       string  `json:"url" yaml:"url"`
	RateLimit float64 `json:"ratelimit" yaml:"ratelimit"` // Requests per second
	UserAgent string  `json:"useragent" yaml:"useragent"`

	// HTTP timeout in seconds
	Timeout int `json:"timeout" yaml:"timeout"`
}

// Getter returns a col.BlockPageGetter which fetches pageSize blocks per
// page.
func Getter(cfg Config, pageSize int) col.BlockPageGetter {
	c := NewClient(cfg)
	return func(ctx context.Context, before uint64) ([]sim.Block, error) {
		return c.Blocks(ctx, pageSize, before)
	}
}

type Client struct {
	httpclient *http.Client
	limiter    *rate.Limiter
	timer      metrics.Timer
	latest     metrics.Gauge // Chain head as of the last response
	cfg        Config
}

func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		httpclient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		timer:      metrics.GetOrRegisterTimer("flashbots.blocks", metrics.DefaultRegistry),
		latest:     metrics.GetOrRegisterGauge("flashbots.latest", metrics.DefaultRegistry),
		cfg:        cfg,
	}
}

// Blocks returns up to limit blocks with number less than before (or the
// latest blocks, if before is 0), newest first.
func (c *Client) Blocks(ctx context.Context, limit int, before uint64) ([]sim.Block, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	defer c.timer.UpdateSince(start)

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if before > 0 {
		q.Set("before", strconv.FormatUint(before, 10))
	}
	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%v: %s", resp.Status, body)
	}

	var page blocksResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}
	if page.LatestBlockNumber != "" {
		latest, err := strconv.ParseInt(string(page.LatestBlockNumber), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("latest_block_number: %v", err)
		}
		c.latest.Update(latest)
	}
	blocks := make([]sim.Block, len(page.Blocks))
	for i, b := range page.Blocks {
		if blocks[i], err = b.simBlock(); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

type blocksResponse struct {
	Blocks            []block `json:"blocks"`
	LatestBlockNumber numeric `json:"latest_block_number"`
}

type block struct {
	BlockNumber  numeric       `json:"block_number"`
	MinerReward  numeric       `json:"miner_reward"`
	GasUsed      numeric       `json:"gas_used"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	Hash             string  `json:"transaction_hash"`
	GasUsed          numeric `json:"gas_used"`
	GasPrice         numeric `json:"gas_price"`
	TotalMinerReward numeric `json:"total_miner_reward"`
}

func (b *block) simBlock() (sim.Block, error) {
	var (
		s   sim.Block
		err error
	)
	if s.Number, err = strconv.ParseUint(string(b.BlockNumber), 10, 64); err != nil {
		return s, fmt.Errorf("block_number: %v", err)
	}
	if s.GasUsed, err = units.ParseGas(string(b.GasUsed)); err != nil {
		return s, fmt.Errorf("block %d gas_used: %v", s.Number, err)
	}
	if s.Reward, err = units.ParseWei(string(b.MinerReward)); err != nil {
		return s, fmt.Errorf("block %d miner_reward: %v", s.Number, err)
	}
	s.Txs = make([]sim.Tx, len(b.Transactions))
	for i, tx := range b.Transactions {
		stx := &s.Txs[i]
		if stx.GasUsed, err = units.ParseGas(string(tx.GasUsed)); err != nil {
			return s, fmt.Errorf("tx %s gas_used: %v", tx.Hash, err)
		}
		if stx.GasPrice, err = units.ParseWei(string(tx.GasPrice)); err != nil {
			return s, fmt.Errorf("tx %s gas_price: %v", tx.Hash, err)
		}
		if stx.Reward, err = units.ParseWei(string(tx.TotalMinerReward)); err != nil {
			return s, fmt.Errorf("tx %s total_miner_reward: %v", tx.Hash, err)
		}
	}
	return s, nil
}

// numeric is an integer which the API encodes either as a JSON number or as a
// decimal string.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numeric(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numeric(num)
	return nil
}
