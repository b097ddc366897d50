package sim

import (
	"github.com/frankdfr96/MEVresearch/units"
)

type GasTargetConfig struct {
	Target  units.Gas  `yaml:"target" json:"target"`
	InitFee units.Gwei `yaml:"initfee" json:"initfee"`

	// Number of blocks for the fee to double, at 2*Target gas consumption
	TimeToDouble float64 `yaml:"timetodouble" json:"timetodouble"`

	// The fee never falls below MinFee
	MinFee units.Gwei `yaml:"minfee" json:"minfee"`
}

func (c GasTargetConfig) Validate() error {
	if err := checkTarget(c.Target); err != nil {
		return err
	}
	if err := checkFactor("timetodouble", 2, c.TimeToDouble); err != nil {
		return err
	}
	if err := checkNonNegative("initfee", float64(c.InitFee)); err != nil {
		return err
	}
	return checkNonNegative("minfee", float64(c.MinFee))
}

// GasTargetSim charges a priority fee per unit of gas. Transactions offering a
// gas price above the fee are included, and the fee is adjusted after each
// block so as to steer the included gas towards the target.
type GasTargetSim struct {
	cfg GasTargetConfig
	k   float64
	fee units.Gwei
}

func NewGasTargetSim(cfg GasTargetConfig) (*GasTargetSim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &GasTargetSim{
		cfg: cfg,
		k:   compound(2, cfg.TimeToDouble) - 1,
	}
	s.Reset()
	return s, nil
}

// Fee returns the fee that will be charged to the next block.
func (s *GasTargetSim) Fee() units.Gwei {
	return s.fee
}

// Reset the fee to its initial value.
func (s *GasTargetSim) Reset() {
	s.fee = s.cfg.InitFee
}

// NextBlock processes b at the current fee, returning that fee, the amount
// burnt and the gas of the included transactions.
func (s *GasTargetSim) NextBlock(b Block) (fee units.Gwei, burnt units.Eth, gas units.Gas) {
	fee = s.fee
	for _, tx := range b.Txs {
		if tx.GasPrice.Gwei() > fee {
			gas += tx.GasUsed
			burnt += fee.Times(tx.GasUsed)
		}
	}
	next := fee.Scale(targetAdjust(s.k, gas, s.cfg.Target))
	if !(next > s.cfg.MinFee) {
		next = s.cfg.MinFee
	}
	s.fee = next
	return fee, burnt, gas
}

type GasTargetResult struct {
	Fee         []units.Gwei `json:"fee"`
	Burnt       []units.Eth  `json:"burnt"`
	PriorityGas []units.Gas  `json:"prioritygas"`

	// The fee which would apply to the block after the last one
	NextFee units.Gwei `json:"nextfee"`
}

func RunGasTarget(blocks []Block, cfg GasTargetConfig) (*GasTargetResult, error) {
	s, err := NewGasTargetSim(cfg)
	if err != nil {
		return nil, err
	}
	if err := ValidateBlocks(blocks); err != nil {
		return nil, err
	}
	n := len(blocks)
	r := &GasTargetResult{
		Fee:         make([]units.Gwei, n),
		Burnt:       make([]units.Eth, n),
		PriorityGas: make([]units.Gas, n),
	}
	for i, b := range blocks {
		r.Fee[i], r.Burnt[i], r.PriorityGas[i] = s.NextBlock(b)
	}
	r.NextFee = s.Fee()
	return r, nil
}
