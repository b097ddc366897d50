// Package api provides a client for accessing the tipsim service through its
// JSON-RPC API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	jsonrpc "github.com/gorilla/rpc/json"

	"github.com/frankdfr96/MEVresearch/report"
)

// RPC methods are addressed as "<service>.<method>".
const servicePrefix = "Service."

type Config struct {
	Host    string
	Port    string
	Timeout int
}

type Client struct {
	httpclient *http.Client
	cfg        Config
}

// Run is the outcome of one sim run by the service.
type Run struct {
	Algo    string                 `json:"algo"`
	Params  map[string]interface{} `json:"params"`
	Summary report.Summary         `json:"summary"`
}

func NewClient(cfg Config) *Client {
	httpclient := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	return &Client{httpclient: httpclient, cfg: cfg}
}

func (c *Client) Stop() error {
	_, err := c.doRPC(servicePrefix+"Stop", nil)
	return err
}

func (c *Client) Status() (map[string]string, error) {
	r, err := c.doRPC(servicePrefix+"Status", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Simulate runs the sim named algo ("all" for all of them) over the service's
// dataset. params, if not nil, is a JSON object overriding the configured sim
// params, e.g. {"hybrid": {"bribespercentage": 50}}.
func (c *Client) Simulate(algo string, params json.RawMessage) ([]Run, error) {
	args := struct {
		Algo   string          `json:"algo"`
		Params json.RawMessage `json:"params,omitempty"`
	}{algo, params}
	r, err := c.doRPC(servicePrefix+"Simulate", args)
	if err != nil {
		return nil, err
	}

	var result []Run
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SetDebug(d bool) error {
	_, err := c.doRPC(servicePrefix+"SetDebug", d)
	return err
}

func (c *Client) Config() (map[string]interface{}, error) {
	r, err := c.doRPC(servicePrefix+"Config", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) Metrics() (map[string]interface{}, error) {
	r, err := c.doRPC(servicePrefix+"Metrics", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) doRPC(method string, args interface{}) (json.RawMessage, error) {
	b, err := jsonrpc.EncodeClientRequest(method, args)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc.EncodeClientRequest: %v", err)
	}

	url := "http://" + net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	req, err := http.NewRequest("POST", url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m json.RawMessage
	if err := jsonrpc.DecodeClientResponse(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("jsonrpc.DecodeClientResponse: %v", err)
	}
	return m, nil
}
