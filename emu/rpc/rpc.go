// Package rpc exposes a small control channel into a running emulator,
// used to drive it from scripts and integration tests.
package rpc

import (
	"gigatron/emu/log"
)

var modRPC = log.NewModule("rpc")
