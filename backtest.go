package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"

	col "github.com/frankdfr96/MEVresearch/collect"
	"github.com/frankdfr96/MEVresearch/report"
	"github.com/frankdfr96/MEVresearch/sim"
)

var errLoading = errors.New("dataset is loading")
var errShutdown = errors.New("backtest is shutting down")

const (
	algoGasTarget = "gastarget"
	algoOneOff    = "oneoff"
	algoHybrid    = "hybrid"
	algoAll       = "all"
)

var (
	allAlgos   = []string{algoGasTarget, algoOneOff, algoHybrid}
	algoTitles = map[string]string{
		algoGasTarget: "Gas targeting",
		algoOneOff:    "One-off fee",
		algoHybrid:    "Hybrid",
	}
)

type BlockDB interface {
	col.BlockDB
	Close() error
}

// Params are the parameters of the fee mechanisms.
type Params struct {
	GasTarget sim.GasTargetConfig `yaml:"gastarget" json:"gastarget"`
	OneOff    sim.OneOffConfig    `yaml:"oneoff" json:"oneoff"`
	Hybrid    sim.HybridConfig    `yaml:"hybrid" json:"hybrid"`
}

type BacktestConfig struct {
	Collect col.Config `yaml:"collect" json:"collect"`
	Params  `yaml:",inline"`

	getPage col.BlockPageGetter `yaml:"-" json:"-"`
	logger  *log.Logger         `yaml:"-" json:"-"`
}

// Run is the outcome of one sim over the dataset.
type Run struct {
	Algo    string         `json:"algo"`
	Params  interface{}    `json:"params"`
	Summary report.Summary `json:"summary"`

	Input report.Input `json:"-"`
}

// Backtest runs the fee mechanisms over a dataset which is loaded once.
type Backtest struct {
	dataset *col.Dataset
	err     error
	runs    map[string]*Run

	db     BlockDB
	loader *col.Loader
	timers map[string]metrics.Timer
	cfg    BacktestConfig

	done chan struct{}
	wg   sync.WaitGroup
	mux  sync.RWMutex
}

func NewBacktest(db BlockDB, cfg BacktestConfig) *Backtest {
	if cfg.logger == nil {
		cfg.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	cfg.Collect.Logger = cfg.logger
	cfg.Collect.GetPage = cfg.getPage

	timers := make(map[string]metrics.Timer)
	for _, algo := range allAlgos {
		timers[algo] = metrics.GetOrRegisterTimer("sim."+algo, metrics.DefaultRegistry)
	}
	return &Backtest{
		err:    errLoading,
		runs:   make(map[string]*Run),
		db:     db,
		loader: col.NewLoader(db, cfg.Collect),
		timers: timers,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Load loads the dataset, downloading it if it isn't cached.
func (b *Backtest) Load(ctx context.Context) error {
	d, err := b.loader.Load(ctx)
	b.mux.Lock()
	defer b.mux.Unlock()
	b.dataset, b.err = d, err
	return err
}

func (b *Backtest) Dataset() (*col.Dataset, error) {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.dataset, b.err
}

// Run runs the named sims over the dataset, concurrently. algoAll names all
// the sims.
func (b *Backtest) Run(ctx context.Context, p Params, algos ...string) ([]*Run, error) {
	d, err := b.Dataset()
	if err != nil {
		return nil, err
	}
	algos, err = expandAlgos(algos)
	if err != nil {
		return nil, err
	}

	runs := make([]*Run, len(algos))
	g, ctx := errgroup.WithContext(ctx)
	for i, algo := range algos {
		i, algo := i, algo
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			r, err := runAlgo(d, p, algo)
			if err != nil {
				return fmt.Errorf("%s: %w", algo, err)
			}
			b.timers[algo].UpdateSince(start)
			b.cfg.logger.Printf("[DEBUG] %s sim done in %v.", algo, time.Since(start))
			runs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.mux.Lock()
	defer b.mux.Unlock()
	for _, r := range runs {
		b.runs[r.Algo] = r
	}
	return runs, nil
}

// LastRun returns the latest run of algo, or nil if there wasn't one.
func (b *Backtest) LastRun(algo string) *Run {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.runs[algo]
}

func (b *Backtest) Status() map[string]string {
	status := make(map[string]string)
	if d, err := b.Dataset(); err != nil {
		status["dataset"] = err.Error()
	} else {
		status["dataset"] = d.String()
	}
	for _, algo := range allAlgos {
		if r := b.LastRun(algo); r == nil {
			status[algo] = "Not run."
		} else {
			status[algo] = fmt.Sprintf("Total burn %.1f%%, missed slots %.1f%%.",
				r.Summary.TotalBurnPct, r.Summary.MissedSlotPct)
		}
	}
	return status
}

// Serve loads the dataset and runs all the sims with the configured params,
// then keeps the dataset available for further runs until Stop is called.
func (b *Backtest) Serve() error {
	logger := b.cfg.logger
	b.wg.Add(1)
	defer logger.Println("Backtest stopped.")
	defer b.wg.Wait()
	defer b.wg.Done()
	defer b.db.Close()

	logger.Printf("Tipsim v%s starting up..", version)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-b.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := b.Load(ctx); err != nil {
		select {
		case <-b.done:
			return nil
		default:
			return err
		}
	}
	if _, err := b.Run(ctx, b.cfg.Params, allAlgos...); err != nil {
		logger.Println("[ERROR] Backtest:", err)
	}
	logger.Println("Tipsim startup complete.")
	<-b.done
	b.mux.Lock()
	b.err = errShutdown
	b.mux.Unlock()
	return nil
}

func (b *Backtest) Stop() {
	b.closeDone()
	b.wg.Wait()
}

// closeDone closes b.done in a concurrent-safe way.
func (b *Backtest) closeDone() {
	b.mux.Lock()
	defer b.mux.Unlock()
	select {
	case <-b.done: // Already closed
	default:
		close(b.done)
	}
}

func expandAlgos(algos []string) ([]string, error) {
	var expanded []string
	for _, algo := range algos {
		if algo == algoAll {
			expanded = append(expanded, allAlgos...)
			continue
		}
		if _, ok := algoTitles[algo]; !ok {
			return nil, fmt.Errorf("invalid algo '%s'", algo)
		}
		expanded = append(expanded, algo)
	}
	if len(expanded) == 0 {
		return nil, errors.New("no algo specified")
	}
	return expanded, nil
}

func runAlgo(d *col.Dataset, p Params, algo string) (*Run, error) {
	in := report.Input{
		Title:   algoTitles[algo],
		Rewards: d.Rewards(),
		GasUsed: d.GasUsed(),
	}
	var params interface{}
	switch algo {
	case algoGasTarget:
		r, err := sim.RunGasTarget(d.Blocks, p.GasTarget)
		if err != nil {
			return nil, err
		}
		in.Burnt, in.PriorityGas, in.GasFee = r.Burnt, r.PriorityGas, r.Fee
		params = p.GasTarget
	case algoOneOff:
		r, err := sim.RunOneOff(d.Blocks, p.OneOff)
		if err != nil {
			return nil, err
		}
		in.Burnt, in.PriorityGas, in.OneOffFee = r.Burnt, r.PriorityGas, r.Fee
		params = p.OneOff
	case algoHybrid:
		prices, err := d.Pricer()
		if err != nil {
			return nil, err
		}
		r, err := sim.RunHybrid(d.Blocks, prices, p.Hybrid)
		if err != nil {
			return nil, err
		}
		in.Burnt, in.PriorityGas = r.Burnt, r.PriorityGas
		in.GasFee, in.OneOffFee = r.GasFee, r.OneOffFee
		params = p.Hybrid
	default:
		return nil, fmt.Errorf("invalid algo '%s'", algo)
	}

	s, err := report.Summarize(in)
	if err != nil {
		return nil, err
	}
	return &Run{Algo: algo, Params: params, Summary: s, Input: in}, nil
}

// writeSeries writes the per-block series of the dataset and the runs as CSV.
func writeSeries(w io.Writer, d *col.Dataset, runs []*Run) error {
	numbers := make([]uint64, len(d.Blocks))
	for i, b := range d.Blocks {
		numbers[i] = b.Number
	}
	cols := report.BlockColumns(report.Input{Rewards: d.Rewards(), GasUsed: d.GasUsed()})
	for _, r := range runs {
		cols = append(cols, r.Input.Columns(r.Algo)...)
	}
	return report.WriteSeries(w, numbers, cols)
}
