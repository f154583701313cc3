package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"
)

type Client struct {
	client *rpc.Client
}

func NewClient(port int) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := 0; i < maxretries; i++ {
		if client, err = rpc.DialHTTP("tcp", ":"+strconv.Itoa(port)); err == nil {
			break
		}
		client = nil
		modRPC.Warnf("dial tcp failed (retry %d): %v", i, err)
		time.Sleep(250 * time.Millisecond)
	}
	if client == nil {
		return nil, fmt.Errorf("dial failed after %d retries: %v", maxretries, err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Reset() error              { return c.call("emu.Reset", nil) }
func (c *Client) SetPause(pause bool) error { return c.call("emu.SetPause", pause) }
func (c *Client) Stop() error               { return c.call("emu.Stop", nil) }
func (c *Client) LoadGT1(path string) error { return c.call("emu.LoadGT1", path) }

func (c *Client) call(funcname string, args any) error {
	if args == nil {
		args = &struct{}{}
	}
	var reply struct{}
	return c.client.Call(funcname, args, &reply)
}
