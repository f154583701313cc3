package rpc

import (
	"io"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
)

// Emu is the emulator surface remotely controllable over the wire.
type Emu interface {
	Reset()
	SetPause(pause bool)
	Stop()
	LoadGT1(path string) error
}

type emuProxy struct {
	emu Emu
}

func (ep *emuProxy) Reset(_, _ *struct{}) error             { ep.emu.Reset(); return nil }
func (ep *emuProxy) SetPause(pause bool, _ *struct{}) error { ep.emu.SetPause(pause); return nil }
func (ep *emuProxy) Stop(_ *struct{}, _ *struct{}) error    { ep.emu.Stop(); return nil }

func (ep *emuProxy) LoadGT1(path string, _ *struct{}) error {
	return ep.emu.LoadGT1(path)
}

func (ep *emuProxy) IsReady(_ *struct{}, reply *bool) error {
	*reply = true
	return nil
}

type Server struct {
	io.Closer
}

func NewServer(port int, emu Emu) (*Server, error) {
	proxy := &emuProxy{emu: emu}
	if err := rpc.RegisterName("emu", proxy); err != nil {
		panic("failed to register RPC server: " + err.Error())
	}
	rpc.HandleHTTP()
	l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}

	modRPC.Infof("rpc server listening on port %d", port)
	go http.Serve(l, nil)
	return &Server{Closer: l}, nil
}
