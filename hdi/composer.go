package hdi

import (
	"go.uber.org/multierr"
)

// Composition is one stage of the composer.
type Composition interface {
	Init() error
	// SetLayers decides how each layer of the frame is composed.
	SetLayers(layers []*Layer, client *Layer) error
	// Apply composes the frame decided by the last SetLayers.
	Apply(modeSet bool) error
	Close() error
}

// Composer runs a pre composition, which composes layers into the client
// buffer, followed by a post composition, which scans out.
type Composer struct {
	pre  Composition
	post Composition
}

// NewComposer initializes both stages.
func NewComposer(pre, post Composition) (*Composer, error) {
	if pre == nil || post == nil {
		return nil, ErrNullPtr
	}
	if err := pre.Init(); err != nil {
		return nil, err
	}
	if err := post.Init(); err != nil {
		return nil, multierr.Append(err, pre.Close())
	}
	return &Composer{pre: pre, post: post}, nil
}

func (c *Composer) Prepare(layers []*Layer, client *Layer) error {
	if err := c.pre.SetLayers(layers, client); err != nil {
		return err
	}
	return c.post.SetLayers(layers, client)
}

// Commit fails the whole frame as soon as one stage fails.
func (c *Composer) Commit(modeSet bool) error {
	if err := c.pre.Apply(modeSet); err != nil {
		return err
	}
	return c.post.Apply(modeSet)
}

func (c *Composer) Close() error {
	return multierr.Append(c.post.Close(), c.pre.Close())
}
