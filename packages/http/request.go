package http

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

// task is a submitted descriptor waiting for Start.
type task struct {
	client *Client
	ctx    context.Context
	desc   *network.Descriptor
	done   network.Completion
	once   sync.Once
}

// Start begins the transfer. Calling it more than once has no effect.
func (t *task) Start() {
	t.once.Do(func() {
		go t.run()
	})
}

func (t *task) run() {
	resp, err := t.client.Do(t.ctx, t.desc)
	if resp == nil {
		t.done(nil, nil, err)
		return
	}
	t.done(resp.Body, resp.Meta(), err)
}
