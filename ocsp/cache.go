// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"fmt"
	"time"
)

// CacheControl computes the RFC 5019 §2.2.2 Cache-Control header value for
// a response whose producedAt and nextUpdate are now and nextUpdate, given
// an optional operator-configured ceiling maxAge (spec §4.7). stale reports
// whether nextUpdate had already passed at now, so the caller can log a
// warning alongside the CertID.
func CacheControl(now, nextUpdate time.Time, maxAge *time.Duration) (header string, stale bool) {
	diff := nextUpdate.Sub(now)
	if diff < 0 {
		return "max-age=0,public,no-transform,must-revalidate", true
	}
	ma := diff
	if maxAge != nil && *maxAge < ma {
		ma = *maxAge
	}
	return fmt.Sprintf("max-age=%d,public,no-transform,must-revalidate", int64(ma.Seconds())), false
}
