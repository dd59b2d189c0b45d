// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bseddon/ocsp-responder/ocsp"
)

type countingStore struct {
	calls int32
}

func (c *countingStore) Fetch(serialHex string) (ocsp.RevocationRecord, error) {
	atomic.AddInt32(&c.calls, 1)
	// Hold the lookup open so the concurrent callers overlap with it.
	time.Sleep(50 * time.Millisecond)
	return ocsp.RevocationRecord{Status: ocsp.StatusValid, ExpiryDate: "991231235959Z"}, nil
}

func TestDedupeCollapsesConcurrentFetches(t *testing.T) {
	inner := &countingStore{}
	deduped := Dedupe(inner)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := deduped.Fetch("0A1B2C"); err != nil {
				t.Error(err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if atomic.LoadInt32(&inner.calls) == 0 {
		t.Fatal("expected inner store to be called at least once")
	}
	if atomic.LoadInt32(&inner.calls) >= 20 {
		t.Fatalf("dedupe did not collapse any calls: got %d", inner.calls)
	}
}
