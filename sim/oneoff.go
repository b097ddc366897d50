package sim

import (
	"github.com/frankdfr96/MEVresearch/units"
)

type OneOffConfig struct {
	InitFee      units.Eth `yaml:"initfee" json:"initfee"`
	TimeToDouble float64   `yaml:"timetodouble" json:"timetodouble"`
	TimeToHalf   float64   `yaml:"timetohalf" json:"timetohalf"`
}

func (c OneOffConfig) Validate() error {
	if err := checkNonNegative("initfee", float64(c.InitFee)); err != nil {
		return err
	}
	if err := checkFactor("timetodouble", 2, c.TimeToDouble); err != nil {
		return err
	}
	return checkFactor("timetohalf", 0.5, c.TimeToHalf)
}

// OneOffSim charges a lump-sum fee for the right to include priority
// transactions in a block. Transactions are not inspected; a block pays the
// fee if its miner reward exceeds it, in which case the whole block counts as
// priority gas.
type OneOffSim struct {
	cfg      OneOffConfig
	up, down float64
	fee      units.Eth
}

func NewOneOffSim(cfg OneOffConfig) (*OneOffSim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &OneOffSim{
		cfg:  cfg,
		up:   compound(2, cfg.TimeToDouble),
		down: compound(0.5, cfg.TimeToHalf),
	}
	s.Reset()
	return s, nil
}

func (s *OneOffSim) Fee() units.Eth {
	return s.fee
}

func (s *OneOffSim) Reset() {
	s.fee = s.cfg.InitFee
}

func (s *OneOffSim) NextBlock(b Block) (fee, burnt units.Eth, gas units.Gas) {
	fee = s.fee
	if b.Reward.Eth() > fee {
		burnt, gas = fee, b.GasUsed
		s.fee = fee.Scale(s.up)
	} else {
		s.fee = fee.Scale(s.down)
	}
	return fee, burnt, gas
}

type OneOffResult struct {
	Fee         []units.Eth `json:"fee"`
	Burnt       []units.Eth `json:"burnt"`
	PriorityGas []units.Gas `json:"prioritygas"`
	NextFee     units.Eth   `json:"nextfee"`
}

func RunOneOff(blocks []Block, cfg OneOffConfig) (*OneOffResult, error) {
	s, err := NewOneOffSim(cfg)
	if err != nil {
		return nil, err
	}
	if err := ValidateBlocks(blocks); err != nil {
		return nil, err
	}
	n := len(blocks)
	r := &OneOffResult{
		Fee:         make([]units.Eth, n),
		Burnt:       make([]units.Eth, n),
		PriorityGas: make([]units.Gas, n),
	}
	for i, b := range blocks {
		r.Fee[i], r.Burnt[i], r.PriorityGas[i] = s.NextBlock(b)
	}
	r.NextFee = s.Fee()
	return r, nil
}
