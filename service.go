package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/rpc"
	jsonrpc "github.com/gorilla/rpc/json"
	"github.com/rcrowley/go-metrics"
)

type Service struct {
	Backtest *Backtest
	DLog     *DebugLog
	Cfg      config
}

type SimulateArgs struct {
	Algo string `json:"algo"`

	// Params overrides the configured params; fields which are omitted keep
	// their configured values.
	Params json.RawMessage `json:"params,omitempty"`
}

func (s *Service) Handler() http.Handler {
	srv := rpc.NewServer()
	srv.RegisterCodec(jsonrpc.NewCodec(), "application/json")
	srv.RegisterService(s, "")
	return srv
}

func (s *Service) ListenAndServe() error {
	addr := net.JoinHostPort(s.Cfg.AppRPC.Host, s.Cfg.AppRPC.Port)
	s.DLog.Logger.Println("RPC server listening on", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Service) Stop(r *http.Request, args *struct{}, reply *struct{}) error {
	go s.Backtest.Stop()
	return nil
}

func (s *Service) Status(r *http.Request, args *struct{}, reply *map[string]string) error {
	*reply = s.Backtest.Status()
	return nil
}

func (s *Service) Simulate(r *http.Request, args *SimulateArgs, reply *[]*Run) error {
	p := s.Cfg.Params
	if len(args.Params) > 0 {
		if err := json.Unmarshal(args.Params, &p); err != nil {
			return fmt.Errorf("params: %v", err)
		}
	}
	runs, err := s.Backtest.Run(r.Context(), p, args.Algo)
	if err != nil {
		return err
	}
	*reply = runs
	return nil
}

func (s *Service) SetDebug(r *http.Request, args *bool, reply *bool) error {
	s.DLog.SetDebug(*args)
	s.DLog.Logger.Printf("Debug logging set to %t.", *args)
	*reply = *args
	return nil
}

func (s *Service) Config(r *http.Request, args *struct{}, reply *interface{}) error {
	*reply = s.Cfg
	return nil
}

func (s *Service) Metrics(r *http.Request, args *struct{}, reply *metrics.Registry) error {
	*reply = metrics.DefaultRegistry
	return nil
}
