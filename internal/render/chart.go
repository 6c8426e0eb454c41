package render

import (
	"sync"

	"github.com/prismfin/prism/internal/core"
)

// Content types served for chart artifacts.
const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain; charset=utf-8"
)

// instance is the concrete Chart. Close drops the buffer so a disposed
// chart cannot keep a large render alive.
type instance struct {
	slot        core.ChartSlot
	contentType string

	mu     sync.Mutex
	data   []byte
	closed bool
}

func newInstance(slot core.ChartSlot, contentType string, data []byte) *instance {
	return &instance{slot: slot, contentType: contentType, data: data}
}

func (c *instance) Slot() core.ChartSlot { return c.slot }

func (c *instance) ContentType() string { return c.contentType }

func (c *instance) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.data
}

func (c *instance) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.data = nil
	return nil
}
