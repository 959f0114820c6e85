// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooklock makes sure only one handler touches the install state
// of a host at a time.
package hooklock

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/mutex/v2"
)

// DefaultName is the name of the lock taken by every handler.
const DefaultName = "powerflex-sdc"

const retryDelay = 250 * time.Millisecond

var logger = loggo.GetLogger("powerflex.hooklock")

// Releaser releases an acquired lock.
type Releaser = mutex.Releaser

// Acquire blocks until the named lock is held or ctx is done.
func Acquire(ctx context.Context, name string, clk clock.Clock) (Releaser, error) {
	cancel := ctx.Done()
	if cancel == nil {
		// Never cancelled.
		cancel = make(chan struct{})
	}
	logger.Debugf("acquiring lock %q", name)
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:   name,
		Clock:  clk,
		Delay:  retryDelay,
		Cancel: cancel,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "acquiring lock %q", name)
	}
	logger.Debugf("lock %q acquired", name)
	return releaser, nil
}
