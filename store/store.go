// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package store implements the revocation-record collaborator the status
// resolver (ocsp.Resolve) reads through: fetch(serialHexUpper) ->
// RevocationRecord | NotFound (spec §4.4, §6). FileStore backs it with an
// OpenSSL/EJBCA-style index.txt flat file; SQLStore backs it with a
// borp-mapped MySQL table.
package store

import (
	"time"

	"github.com/bseddon/ocsp-responder/ocsp"
	"golang.org/x/sync/singleflight"
)

// Store is read by the status resolver on every request. Fetch returns
// ocsp.ErrNotFound when serialHex is not present.
type Store interface {
	Fetch(serialHex string) (ocsp.RevocationRecord, error)
}

// WritableStore is the admin-tooling surface (spec §6's optional admin
// commands): recording a newly issued certificate, and revoking/restoring
// one by serial.
type WritableStore interface {
	Store
	Record(serialHex string, expiry time.Time) error
	Revoke(serialHex string, reason string, at time.Time) error
	Restore(serialHex string) error
}

// Deduped wraps a Store so that concurrent Fetch calls for the same serial
// (a thundering herd against one just-checked certificate) collapse into a
// single underlying lookup, the way a busy responder's worker pool can
// otherwise hammer the backing store for a single hot serial.
type Deduped struct {
	inner Store
	group singleflight.Group
}

// Dedupe wraps inner with singleflight-based fetch coalescing.
func Dedupe(inner Store) *Deduped {
	return &Deduped{inner: inner}
}

func (d *Deduped) Fetch(serialHex string) (ocsp.RevocationRecord, error) {
	v, err, _ := d.group.Do(serialHex, func() (interface{}, error) {
		return d.inner.Fetch(serialHex)
	})
	if err != nil {
		return ocsp.RevocationRecord{}, err
	}
	return v.(ocsp.RevocationRecord), nil
}
