// Package blackhole implements the engine that discards everything it is
// given: Put always succeeds and forgets its argument, Get/Exists/Remove
// always report status.NotFound, and every ordered-query method returns
// status.NotSupported since there is no order to report (SPEC_FULL.md
// §5.4 "Addition — blackhole engine"). It exists to give pkg/engine/dispatch
// a second concrete engine to register, proving the dispatch layer's
// pluggability contract instead of being exercised against one hard-coded
// case — mirroring the original library's unconditional inclusion of
// blackhole alongside the real engines.
package blackhole

import (
	"github.com/krzycz/pmemkv/pkg/config"
	"github.com/krzycz/pmemkv/pkg/engine"
	"github.com/krzycz/pmemkv/pkg/status"
)

// Name is the engine name registered with pkg/engine/dispatch.
const Name = "blackhole"

// Engine discards every write and reports every key absent. It satisfies
// engine.Engine.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// Open ignores cfg entirely — blackhole has no durable state and no
// recognised options.
func Open(cfg *config.Config) (*Engine, error) {
	return &Engine{}, nil
}

func (e *Engine) CountAll() (uint64, error)                     { return 0, nil }
func (e *Engine) CountAbove(k []byte) (uint64, error)           { return 0, engine.NotSupported("count_above") }
func (e *Engine) CountBelow(k []byte) (uint64, error)           { return 0, engine.NotSupported("count_below") }
func (e *Engine) CountBetween(k1, k2 []byte) (uint64, error)    { return 0, engine.NotSupported("count_between") }

func (e *Engine) GetAll(cb engine.KVCallback) error                 { return nil }
func (e *Engine) GetAbove(k []byte, cb engine.KVCallback) error      { return engine.NotSupported("get_above") }
func (e *Engine) GetBelow(k []byte, cb engine.KVCallback) error      { return engine.NotSupported("get_below") }
func (e *Engine) GetBetween(k1, k2 []byte, cb engine.KVCallback) error {
	return engine.NotSupported("get_between")
}

func (e *Engine) Exists(k []byte) error { return status.New(status.NotFound, "blackhole retains nothing") }

func (e *Engine) Get(k []byte, cb engine.VCallback) error {
	return status.New(status.NotFound, "blackhole retains nothing")
}

// Put discards k and v and reports success, matching the original
// library's blackhole engine.
func (e *Engine) Put(k, v []byte) error { return nil }

func (e *Engine) Remove(k []byte) error {
	return status.New(status.NotFound, "blackhole retains nothing")
}

func (e *Engine) Close() error { return nil }
