// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bseddon/ocsp-responder/ocsp"
)

func newTestFileStore(t *testing.T, lines ...string) *FileStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.txt")
	contents := ""
	for _, l := range lines {
		contents += l + "\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return &FileStore{Path: path}
}

func TestFileStoreFetchValid(t *testing.T) {
	fs := newTestFileStore(t, "V\t991231235959Z\t\t0A1B2C\tunknown\t/CN=example")
	record, err := fs.Fetch("0a1b2c")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != ocsp.StatusValid {
		t.Fatalf("got status %c want V", record.Status)
	}
}

func TestFileStoreFetchRevoked(t *testing.T) {
	fs := newTestFileStore(t, "R\t991231235959Z\t230615101530Z,keyCompromise\t0A1B2C\tunknown\t/CN=example")
	record, err := fs.Fetch("0A1B2C")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != ocsp.StatusRevoked {
		t.Fatalf("got status %c want R", record.Status)
	}
	if record.RevokedDate != "230615101530Z,keyCompromise" {
		t.Fatalf("got revokedDate %q", record.RevokedDate)
	}
}

func TestFileStoreFetchNotFound(t *testing.T) {
	fs := newTestFileStore(t, "V\t991231235959Z\t\tAAAAAA\tunknown\t/CN=example")
	_, err := fs.Fetch("BBBBBB")
	if err != ocsp.ErrNotFound {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}

func TestFileStoreRecordThenFetch(t *testing.T) {
	fs := newTestFileStore(t)
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := fs.Record("0a1b2c", expiry); err != nil {
		t.Fatal(err)
	}
	record, err := fs.Fetch("0A1B2C")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != ocsp.StatusValid {
		t.Fatalf("got status %c want V", record.Status)
	}
}

func TestFileStoreRevokeThenRestore(t *testing.T) {
	fs := newTestFileStore(t, "V\t991231235959Z\t\t0A1B2C\tunknown\t/CN=example")
	now := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)
	if err := fs.Revoke("0a1b2c", "keyCompromise", now); err != nil {
		t.Fatal(err)
	}
	record, err := fs.Fetch("0a1b2c")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != ocsp.StatusRevoked {
		t.Fatalf("got status %c want R", record.Status)
	}

	if err := fs.Restore("0a1b2c"); err != nil {
		t.Fatal(err)
	}
	record, err = fs.Fetch("0a1b2c")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != ocsp.StatusValid || record.RevokedDate != "" {
		t.Fatalf("got %+v want restored valid record", record)
	}
}

func TestFileStoreRevokeNotFound(t *testing.T) {
	fs := newTestFileStore(t, "V\t991231235959Z\t\tAAAAAA\tunknown\t/CN=example")
	if err := fs.Revoke("BBBBBB", "keyCompromise", time.Now()); err != ocsp.ErrNotFound {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}
