package sim

import (
	"fmt"

	"github.com/frankdfr96/MEVresearch/units"
)

type HybridConfig struct {
	InitOneOffFee units.Eth  `yaml:"initoneofffee" json:"initoneofffee"`
	InitGasFee    units.Gwei `yaml:"initgasfee" json:"initgasfee"`
	Target        units.Gas  `yaml:"target" json:"target"`

	// One-off fee doubling / halving times, in blocks
	TimeToDouble float64 `yaml:"timetodouble" json:"timetodouble"`
	TimeToHalf   float64 `yaml:"timetohalf" json:"timetohalf"`

	// Gas fee doubling time at 2*Target gas consumption, in blocks
	GasDoublingBlocks float64 `yaml:"gasdoublingblocks" json:"gasdoublingblocks"`

	// If true, the gas fee stays at InitGasFee (still floored by the
	// reference price).
	FixedGasFee bool `yaml:"fixedgasfee" json:"fixedgasfee"`

	// The percentage of the true miner payment which is visible on-chain;
	// the rest is assumed to be paid off-chain.
	BribesPercentage float64 `yaml:"bribespercentage" json:"bribespercentage"`

	MinGasFee units.Gwei `yaml:"mingasfee" json:"mingasfee"`
}

func (c HybridConfig) Validate() error {
	if err := checkNonNegative("initoneofffee", float64(c.InitOneOffFee)); err != nil {
		return err
	}
	if err := checkNonNegative("initgasfee", float64(c.InitGasFee)); err != nil {
		return err
	}
	if err := checkTarget(c.Target); err != nil {
		return err
	}
	if err := checkFactor("timetodouble", 2, c.TimeToDouble); err != nil {
		return err
	}
	if err := checkFactor("timetohalf", 0.5, c.TimeToHalf); err != nil {
		return err
	}
	if err := checkFactor("gasdoublingblocks", 2, c.GasDoublingBlocks); err != nil {
		return err
	}
	if !(c.BribesPercentage > 0 && c.BribesPercentage <= 100) {
		return ConfigError{"bribespercentage", fmt.Sprintf("%v is not in (0, 100]", c.BribesPercentage)}
	}
	return checkNonNegative("mingasfee", float64(c.MinGasFee))
}

// HybridBlock is the outcome of one block of the hybrid sim.
type HybridBlock struct {
	OneOffFee   units.Eth
	GasFee      units.Gwei
	Burnt       units.Eth
	PriorityGas units.Gas

	// The gas of the individually profitable transactions, whether or not
	// the block as a whole validated the one-off fee.
	ViableGas units.Gas
}

// HybridSim combines a per-gas fee, which prices routine congestion, with a
// lump-sum one-off fee.
//
// A transaction is includable if the gas fee it would burn does not exceed its
// payment to the miner (inflated to account for off-chain bribes). The block's
// one-off fee is validated only if the summed surplus of the includable
// transactions covers it net of what they already burn; otherwise the whole
// block is rejected and nothing is burnt or included.
type HybridSim struct {
	cfg    HybridConfig
	prices ReferencePricer

	up, down   float64 // One-off fee factors
	k          float64 // Gas fee growth rate
	paymentMul float64 // Visible reward to true payment multiplier

	oneOffFee units.Eth
	gasFee    units.Gwei
}

func NewHybridSim(cfg HybridConfig, prices ReferencePricer) (*HybridSim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, ConfigError{"prices", "reference pricer is nil"}
	}
	s := &HybridSim{
		cfg:        cfg,
		prices:     prices,
		up:         compound(2, cfg.TimeToDouble),
		down:       compound(0.5, cfg.TimeToHalf),
		k:          compound(2, cfg.GasDoublingBlocks) - 1,
		paymentMul: 100 / cfg.BribesPercentage,
	}
	s.Reset()
	return s, nil
}

func (s *HybridSim) Reset() {
	s.oneOffFee = s.cfg.InitOneOffFee
	s.gasFee = s.cfg.InitGasFee
}

// Fees returns the one-off fee and the gas fee (before the reference price
// floor) for the next block.
func (s *HybridSim) Fees() (units.Eth, units.Gwei) {
	return s.oneOffFee, s.gasFee
}

func (s *HybridSim) NextBlock(b Block) HybridBlock {
	gasFee := s.gasFee
	if ref := s.prices.Price(b.Number); ref > gasFee {
		gasFee = ref
	}
	oneOffFee := s.oneOffFee

	var (
		gas               units.Gas
		burnt, newRewards units.Eth
	)
	for _, tx := range b.Txs {
		burn := gasFee.Times(tx.GasUsed)
		payment := tx.Reward.Eth().Scale(s.paymentMul)
		if burn <= payment {
			newRewards += payment - burn
			gas += tx.GasUsed
			burnt += burn
		}
	}
	r := HybridBlock{
		OneOffFee: oneOffFee,
		GasFee:    gasFee,
		ViableGas: gas,
	}

	if newRewards > oneOffFee-burnt {
		if oneOffFee > burnt {
			burnt = oneOffFee
		}
		s.oneOffFee = oneOffFee.Scale(s.up)
	} else {
		// Rejection is block-wide
		burnt, gas = 0, 0
		s.oneOffFee = oneOffFee.Scale(s.down)
	}
	r.Burnt, r.PriorityGas = burnt, gas

	if !s.cfg.FixedGasFee {
		next := gasFee.Scale(targetAdjust(s.k, gas, s.cfg.Target))
		if !(next > s.cfg.MinGasFee) {
			next = s.cfg.MinGasFee
		}
		s.gasFee = next
	}
	return r
}

type HybridResult struct {
	OneOffFee   []units.Eth  `json:"oneofffee"`
	GasFee      []units.Gwei `json:"gasfee"`
	Burnt       []units.Eth  `json:"burnt"`
	PriorityGas []units.Gas  `json:"prioritygas"`
	ViableGas   []units.Gas  `json:"viablegas"`

	NextOneOffFee units.Eth  `json:"nextoneofffee"`
	NextGasFee    units.Gwei `json:"nextgasfee"`
}

func RunHybrid(blocks []Block, prices ReferencePricer, cfg HybridConfig) (*HybridResult, error) {
	s, err := NewHybridSim(cfg, prices)
	if err != nil {
		return nil, err
	}
	if err := ValidateBlocks(blocks); err != nil {
		return nil, err
	}
	n := len(blocks)
	r := &HybridResult{
		OneOffFee:   make([]units.Eth, n),
		GasFee:      make([]units.Gwei, n),
		Burnt:       make([]units.Eth, n),
		PriorityGas: make([]units.Gas, n),
		ViableGas:   make([]units.Gas, n),
	}
	for i, b := range blocks {
		hb := s.NextBlock(b)
		r.OneOffFee[i] = hb.OneOffFee
		r.GasFee[i] = hb.GasFee
		r.Burnt[i] = hb.Burnt
		r.PriorityGas[i] = hb.PriorityGas
		r.ViableGas[i] = hb.ViableGas
	}
	r.NextOneOffFee, r.NextGasFee = s.Fees()
	return r, nil
}
