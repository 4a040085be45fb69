// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// defaultHTTPClient is shared by gateway commands. Short timeout; these
// are local status probes, not provider calls.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// gatewayClient queries a running Stratum gateway over its REST API.
type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func newGatewayClient(addr string) *gatewayClient {
	return &gatewayClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON fetches path and decodes the JSON response into dest. A
// refused connection comes back coded CodeCLIGatewayNotRunning so
// callers can tell "not running" from a failing gateway.
func (c *gatewayClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return stratumerr.Wrap(err, stratumerr.CodeCLIGatewayNotRunning,
				"gateway is not running")
		}
		return stratumerr.Wrap(err, stratumerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return stratumerr.Errorf(stratumerr.CodeCLIRequestFailure,
			"gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return stratumerr.Wrap(err, stratumerr.CodeCLIRequestFailure, "invalid response")
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
