// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bseddon/ocsp-responder/ocsp"
	"github.com/letsencrypt/borp"

	_ "github.com/go-sql-driver/mysql"
)

// dbOneSelector is anything that can SelectOne a single row, the subset of
// borp.SqlExecutor SQLStore needs.
type dbOneSelector interface {
	SelectOne(interface{}, string, ...interface{}) error
	Exec(string, ...interface{}) (sql.Result, error)
	Insert(list ...interface{}) error
}

// SQLStore reads and writes the revocations table through borp, the
// actively-maintained gorp fork this module uses in place of the original
// gorp.v1 dependency.
type SQLStore struct {
	dbMap dbOneSelector
}

// NewSQLStore opens a MySQL connection string and maps the revocations
// table onto it.
func NewSQLStore(dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	dbMap := &borp.DbMap{Db: db, Dialect: borp.MySQLDialect{Engine: "InnoDB", Encoding: "UTF8"}}
	dbMap.AddTableWithName(revocationModel{}, "revocations").SetKeys(false, "Serial")

	return &SQLStore{dbMap: dbMap}, nil
}

// Fetch implements Store.
func (s *SQLStore) Fetch(serialHex string) (ocsp.RevocationRecord, error) {
	var m revocationModel
	err := s.dbMap.SelectOne(&m,
		"SELECT serial, status, expiryDate, revokedDate FROM revocations WHERE serial = ?",
		strings.ToUpper(serialHex))
	if err == sql.ErrNoRows {
		return ocsp.RevocationRecord{}, ocsp.ErrNotFound
	}
	if err != nil {
		return ocsp.RevocationRecord{}, fmt.Errorf("store: fetching %s: %w", serialHex, err)
	}
	return ocsp.RevocationRecord{
		Status:      ocsp.RecordStatus(m.Status[0]),
		ExpiryDate:  m.ExpiryDate,
		RevokedDate: m.RevokedDate,
	}, nil
}

// Record implements WritableStore.
func (s *SQLStore) Record(serialHex string, expiry time.Time) error {
	return s.dbMap.Insert(&revocationModel{
		Serial:     strings.ToUpper(serialHex),
		Status:     string(ocsp.StatusValid),
		ExpiryDate: expiry.UTC().Format("060102150405Z"),
	})
}

// Revoke implements WritableStore.
func (s *SQLStore) Revoke(serialHex string, reason string, at time.Time) error {
	revokedDate := at.UTC().Format("060102150405Z")
	if reason != "" {
		revokedDate += "," + reason
	}
	res, err := s.dbMap.Exec(
		"UPDATE revocations SET status = ?, revokedDate = ? WHERE serial = ?",
		string(ocsp.StatusRevoked), revokedDate, strings.ToUpper(serialHex))
	if err != nil {
		return fmt.Errorf("store: revoking %s: %w", serialHex, err)
	}
	return requireOneRowAffected(res, serialHex)
}

// Restore implements WritableStore.
func (s *SQLStore) Restore(serialHex string) error {
	res, err := s.dbMap.Exec(
		"UPDATE revocations SET status = ?, revokedDate = '' WHERE serial = ?",
		string(ocsp.StatusValid), strings.ToUpper(serialHex))
	if err != nil {
		return fmt.Errorf("store: restoring %s: %w", serialHex, err)
	}
	return requireOneRowAffected(res, serialHex)
}

func requireOneRowAffected(res sql.Result, serialHex string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ocsp.ErrNotFound
	}
	return nil
}
