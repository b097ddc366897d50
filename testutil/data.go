package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
)

var (
	// BlockPages holds pages of raw Flashbots API responses, newest block
	// first within and across pages, as the API serves them.
	BlockPages []json.RawMessage

	// PricesCSV is an Etherscan average gas price export.
	PricesCSV []byte
)

func LoadData(datadir string) {
	f, err := os.Open(filepath.Join(datadir, "blocks.json"))
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&BlockPages); err != nil {
		panic(err)
	}

	PricesCSV, err = os.ReadFile(filepath.Join(datadir, "prices.csv"))
	if err != nil {
		panic(err)
	}
}
