// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/gob"
	"log"
	"net"
)

type Client struct {
	c net.Conn

	gr *gob.Encoder
	gw *gob.Decoder
}

func NewClient(socketPath string) *Client {
	c, err := net.Dial("unix", socketPath)
	if err != nil {
		log.Print(err)
		log.Fatal("Is the rtschedctl daemon running?")
	}

	gr, gw := gob.NewEncoder(c), gob.NewDecoder(c)
	return &Client{c, gr, gw}
}

func (c *Client) do(action RTSchedAction, response interface{}) {
	vlog("-> (%T) %+v\n", action.Action, action.Action)
	if err := c.gr.Encode(action); err != nil {
		log.Fatal(err)
	}
	err := c.gw.Decode(response)
	vlog("<- (%T) %+v\n", response, response)
	if err != nil {
		log.Fatal(err)
	}
}

func (c *Client) Admit(a ActionAdmit) *ActionAdmitResponse {
	var resp ActionAdmitResponse
	c.do(RTSchedAction{a}, &resp)
	return &resp
}

func (c *Client) Snapshot() *Snapshot {
	var snap Snapshot
	c.do(RTSchedAction{ActionSnapshot{}}, &snap)
	return &snap
}
