package backend

import "github.com/gputrace/tracevis/engine/bridge"

var _ bridge.Controller = (*Backend)(nil)
