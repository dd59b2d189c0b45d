// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package registry

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"

	"github.com/bseddon/ocsp-responder/certinfo"
	rerrors "github.com/bseddon/ocsp-responder/errors"
	"github.com/bseddon/ocsp-responder/ocsp"
)

// Entry is one trusted issuer's immutable responder identity, loaded once
// at startup (spec §4.3).
type Entry struct {
	Issuer  *x509.Certificate
	KeyHash []byte // SHA-1 of issuer's DER public key bytes
	Signer  ocsp.Responder
}

// IssuerConfig names one trusted issuer's certificate and signing key, plus
// whether it should sign with the legacy SHA-1 algorithm.
type IssuerConfig struct {
	Certificate string    `yaml:"certificate"`
	Key         KeyConfig `yaml:"key"`
	Legacy      bool      `yaml:"legacy"`
}

// Registry maps base64(issuerKeyHash) to the Entry that can answer for it.
// It is built once at startup and never mutated afterward, so lookups need
// no locking (spec §5).
type Registry struct {
	entries map[string]Entry
}

// Load builds a Registry from a list of issuer configs, using collaborator
// to extract each issuer's public-key bytes (spec §4.3, §6).
func Load(configs []IssuerConfig, collaborator certinfo.Collaborator) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(configs))}
	for _, cfg := range configs {
		cert, err := LoadIssuerCert(cfg.Certificate)
		if err != nil {
			return nil, rerrors.ConfigErrorError("registry: %v", err)
		}
		key, err := LoadKey(cfg.Key)
		if err != nil {
			return nil, rerrors.ConfigErrorError("registry: loading key for %s: %v", cfg.Certificate, err)
		}
		info, err := collaborator.Parse(cert.Raw)
		if err != nil {
			return nil, rerrors.ConfigErrorError("registry: extracting issuer info for %s: %v", cfg.Certificate, err)
		}
		keyHash := sha1.Sum(info.PublicKeyBytes)

		entry := Entry{
			Issuer:  cert,
			KeyHash: keyHash[:],
			Signer: ocsp.Responder{
				KeyHash: keyHash[:],
				Signer:  key,
				Certs:   []*x509.Certificate{cert},
				Legacy:  cfg.Legacy,
			},
		}
		r.entries[base64.StdEncoding.EncodeToString(keyHash[:])] = entry
	}
	return r, nil
}

// Lookup returns the Entry for issuerKeyHash, or an UnknownIssuer error if
// no trusted issuer matches it (spec §4.3: "A miss yields the OCSP error
// response unauthorized (code 6)").
func (r *Registry) Lookup(issuerKeyHash []byte) (Entry, error) {
	key := base64.StdEncoding.EncodeToString(issuerKeyHash)
	entry, ok := r.entries[key]
	if !ok {
		return Entry{}, rerrors.UnknownIssuerError("no responder registered for issuerKeyHash %x", issuerKeyHash)
	}
	return entry, nil
}

// Len returns the number of loaded issuers, for startup diagnostics.
func (r *Registry) Len() int {
	return len(r.entries)
}
