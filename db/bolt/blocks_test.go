package bolt

import (
	"path/filepath"
	"testing"

	"github.com/frankdfr96/MEVresearch/sim"
	"github.com/frankdfr96/MEVresearch/testutil"
)

func TestBlockDB(t *testing.T) {
	dbfile := filepath.Join(t.TempDir(), "blocks.db")

	// Just some random data
	blocksRef := []sim.Block{
		{
			Number:  12300000,
			GasUsed: 10000000,
			Reward:  2e18,
			Txs: []sim.Tx{
				{GasUsed: 250000, GasPrice: 1e11, Reward: 2.5e16},
			},
		},
		{
			Number:  12300002,
			GasUsed: 14990000,
			Reward:  2.5e18,
			Txs: []sim.Tx{
				{GasUsed: 400000, GasPrice: 2e11, Reward: 1e17},
				{GasUsed: 21000, GasPrice: 0, Reward: 3e16},
			},
		},
		{
			Number:  12300003,
			GasUsed: 9000000,
			Reward:  2.05e18,
		},
	}

	d, err := LoadBlockDB(dbfile)
	if err != nil {
		t.Fatal(err)
	}

	// Shouldn't be able to load again
	_, err = LoadBlockDB(dbfile)
	if err == nil {
		t.Fatal("expected timeout on second load")
	}
	if err := testutil.CheckEqual(err.Error(), "timeout"); err != nil {
		t.Fatal(err)
	}

	// Close and reopen
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if d, err = LoadBlockDB(dbfile); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	// Put and Get
	if err := d.Put(blocksRef); err != nil {
		t.Fatal(err)
	}
	blocks, err := d.Get(12300000, 12300003)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(blocks, blocksRef); err != nil {
		t.Error(err)
	}

	// Get a subrange
	blocks, err = d.Get(12300001, 12300005)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(blocks, blocksRef[1:]); err != nil {
		t.Error(err)
	}

	// Delete
	if err := d.Delete(0, 12300002); err != nil {
		t.Fatal(err)
	}
	blocks, err = d.Get(0, 12400000)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(blocks, blocksRef[2:]); err != nil {
		t.Error(err)
	}
}

func TestBlockDBDatasets(t *testing.T) {
	d, err := LoadBlockDB(filepath.Join(t.TempDir(), "blocks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, _, ok, err := d.GetDataset("latest/30"); err != nil || ok {
		t.Fatalf("expected no dataset, got ok=%v err=%v", ok, err)
	}
	if err := d.PutDataset("latest/30", 12100000, 12300000); err != nil {
		t.Fatal(err)
	}
	first, last, ok, err := d.GetDataset("latest/30")
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual([]interface{}{first, last, ok}, []interface{}{uint64(12100000), uint64(12300000), true}); err != nil {
		t.Error(err)
	}
	if err := d.DeleteDataset("latest/30"); err != nil {
		t.Fatal(err)
	}
	if _, _, ok, err := d.GetDataset("latest/30"); err != nil || ok {
		t.Fatalf("expected deleted dataset, got ok=%v err=%v", ok, err)
	}
}
