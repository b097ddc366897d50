package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frankdfr96/MEVresearch/api"
)

func newTestService(t *testing.T) (*Service, *api.Client) {
	b := newTestBacktest(t)
	t.Cleanup(func() { b.db.Close() })
	require.NoError(t, b.Load(context.Background()))

	dLog := NewDebugLog(io.Discard, "", log.LstdFlags, false)
	t.Cleanup(dLog.Close)
	cfg := defaultConfig
	cfg.BacktestConfig = b.cfg
	s := &Service{Backtest: b, DLog: dLog, Cfg: cfg}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return s, api.NewClient(api.Config{Host: host, Port: port, Timeout: 10})
}

func TestServiceSimulate(t *testing.T) {
	s, c := newTestService(t)

	runs, err := c.Simulate(algoAll, nil)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, algo := range allAlgos {
		require.Equal(t, algo, runs[i].Algo)
		require.Equal(t, s.Backtest.LastRun(algo).Summary, runs[i].Summary)
	}

	prev := runs[1].Summary

	// Omitted params keep their configured values
	runs, err = c.Simulate(algoOneOff, json.RawMessage(`{"oneoff": {"initfee": 1}}`))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, map[string]interface{}{
		"initfee":      1.,
		"timetodouble": 6.,
		"timetohalf":   7.,
	}, runs[0].Params)
	require.True(t, runs[0].Summary.HasOneOffFee)
	require.NotEqual(t, prev.MeanOneOffFee, runs[0].Summary.MeanOneOffFee)
	require.Equal(t, s.Backtest.LastRun(algoOneOff).Summary, runs[0].Summary)

	_, err = c.Simulate(algoHybrid, json.RawMessage(`{"hybrid": {"bribespercentage": 0}}`))
	require.ErrorContains(t, err, "bribespercentage")
	_, err = c.Simulate("nonexistent", nil)
	require.ErrorContains(t, err, "invalid algo")
}

func TestServiceStatus(t *testing.T) {
	s, c := newTestService(t)

	status, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, "Not run.", status[algoHybrid])
	require.Equal(t, s.Backtest.Status(), status)

	require.NoError(t, c.SetDebug(true))
	require.True(t, s.DLog.Debug())

	cfg, err := c.Config()
	require.NoError(t, err)
	require.Equal(t, s.Cfg.DataDir, cfg["datadir"])
	require.Contains(t, cfg, "hybrid")

	_, err = c.Simulate(algoGasTarget, nil)
	require.NoError(t, err)
	m, err := c.Metrics()
	require.NoError(t, err)
	require.Contains(t, m, "sim.gastarget")
}
