// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bseddon/ocsp-responder/ocsp"
)

// FileStore reads and writes an OpenSSL/EJBCA-shaped index.txt: one
// tab-separated line per certificate, fields status, expiryDate,
// revokedDate, serial, filename, subjectDN. The filename and subjectDN
// fields are round-tripped but never consulted (spec §3). Per spec §5, each
// Fetch opens and closes its own file handle rather than holding the file
// open across requests.
type FileStore struct {
	Path string

	// writeMu serializes the read-modify-write cycle Revoke/Restore/Record
	// perform. It only matters for the admin CLI, which may run several
	// commands against one file in a single process; the responder itself
	// never writes.
	writeMu sync.Mutex
}

type indexLine struct {
	status      string
	expiryDate  string
	revokedDate string
	serial      string
	filename    string
	subjectDN   string
}

func parseIndexLine(line string) (indexLine, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 || fields[0] == "" {
		return indexLine{}, false
	}
	l := indexLine{status: fields[0], expiryDate: fields[1], revokedDate: fields[2], serial: strings.ToUpper(fields[3])}
	if len(fields) > 4 {
		l.filename = fields[4]
	}
	if len(fields) > 5 {
		l.subjectDN = fields[5]
	}
	return l, true
}

func (l indexLine) String() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s", l.status, l.expiryDate, l.revokedDate, l.serial, l.filename, l.subjectDN)
}

// IndexEntry is one line of the index, handed out by Entries for tooling
// (CRL rebuilding) that must walk every known serial rather than look up
// one at a time.
type IndexEntry struct {
	SerialHex string
	Record    ocsp.RevocationRecord
}

// Entries reads the whole index and returns every parseable line. Malformed
// lines are skipped rather than failing the whole read, since a hand-edited
// index.txt may carry stray blank or partial lines.
func (fs *FileStore) Entries() ([]IndexEntry, error) {
	f, err := os.Open(fs.Path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", fs.Path, err)
	}
	defer f.Close()

	var entries []IndexEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l, ok := parseIndexLine(scanner.Text())
		if !ok {
			continue
		}
		entries = append(entries, IndexEntry{
			SerialHex: l.serial,
			Record: ocsp.RevocationRecord{
				Status:      ocsp.RecordStatus(l.status[0]),
				ExpiryDate:  l.expiryDate,
				RevokedDate: l.revokedDate,
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", fs.Path, err)
	}
	return entries, nil
}

// Fetch implements Store.
func (fs *FileStore) Fetch(serialHex string) (ocsp.RevocationRecord, error) {
	f, err := os.Open(fs.Path)
	if err != nil {
		return ocsp.RevocationRecord{}, fmt.Errorf("store: opening %s: %w", fs.Path, err)
	}
	defer f.Close()

	serialHex = strings.ToUpper(serialHex)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l, ok := parseIndexLine(scanner.Text())
		if !ok || l.serial != serialHex {
			continue
		}
		return ocsp.RevocationRecord{
			Status:      ocsp.RecordStatus(l.status[0]),
			ExpiryDate:  l.expiryDate,
			RevokedDate: l.revokedDate,
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return ocsp.RevocationRecord{}, fmt.Errorf("store: reading %s: %w", fs.Path, err)
	}
	return ocsp.RevocationRecord{}, ocsp.ErrNotFound
}

// Record appends a new valid entry for serialHex, expiring at expiry.
func (fs *FileStore) Record(serialHex string, expiry time.Time) error {
	fs.writeMu.Lock()
	defer fs.writeMu.Unlock()

	f, err := os.OpenFile(fs.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("store: opening %s: %w", fs.Path, err)
	}
	defer f.Close()

	l := indexLine{
		status:     string(ocsp.StatusValid),
		expiryDate: expiry.UTC().Format("060102150405Z"),
		serial:     strings.ToUpper(serialHex),
		filename:   "unknown",
	}
	_, err = fmt.Fprintln(f, l.String())
	return err
}

// Revoke rewrites serialHex's line to status R with the given reason and
// revocation instant.
func (fs *FileStore) Revoke(serialHex string, reason string, at time.Time) error {
	return fs.rewrite(serialHex, func(l *indexLine) error {
		l.status = string(ocsp.StatusRevoked)
		l.revokedDate = at.UTC().Format("060102150405Z")
		if reason != "" {
			l.revokedDate += "," + reason
		}
		return nil
	})
}

// Restore rewrites serialHex's line back to status V, clearing revokedDate.
func (fs *FileStore) Restore(serialHex string) error {
	return fs.rewrite(serialHex, func(l *indexLine) error {
		l.status = string(ocsp.StatusValid)
		l.revokedDate = ""
		return nil
	})
}

// rewrite reads the whole file, applies mutate to the matching line, and
// writes the file back. The flat-file store trades this O(n) rewrite for
// simplicity, matching the OpenSSL index.txt tooling's own behavior.
func (fs *FileStore) rewrite(serialHex string, mutate func(*indexLine) error) error {
	fs.writeMu.Lock()
	defer fs.writeMu.Unlock()

	serialHex = strings.ToUpper(serialHex)
	contents, err := os.ReadFile(fs.Path)
	if err != nil {
		return fmt.Errorf("store: opening %s: %w", fs.Path, err)
	}

	lines := strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
	found := false
	for i, raw := range lines {
		l, ok := parseIndexLine(raw)
		if !ok || l.serial != serialHex {
			continue
		}
		if err := mutate(&l); err != nil {
			return err
		}
		lines[i] = l.String()
		found = true
		break
	}
	if !found {
		return ocsp.ErrNotFound
	}

	out := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(fs.Path, []byte(out), 0644)
}
