// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

// revocationModel is the borp-mapped row for the revocations table, one
// row per certificate serial. Serial is stored upper-case hex, matching the
// key the status resolver already computes (spec §4.4).
type revocationModel struct {
	Serial      string `db:"serial"`
	Status      string `db:"status"`
	ExpiryDate  string `db:"expiryDate"`
	RevokedDate string `db:"revokedDate"`
}
