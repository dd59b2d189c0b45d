// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package registry implements the responder registry (spec §4.3): at
// startup, it loads each trusted issuer's certificate and private key,
// computes its issuerKeyHash, and indexes the resulting entry by
// base64(issuerKeyHash) for lookup at request time.
package registry

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/letsencrypt/pkcs11key/v4"

	"github.com/bseddon/ocsp-responder/certinfo"
)

// PKCS11Config names an HSM-resident key by module path, token label, PIN,
// and object label, mirroring the teacher's ca.PKCS11Config shape.
type PKCS11Config struct {
	Module string `yaml:"module"`
	Token  string `yaml:"token"`
	PIN    string `yaml:"pin"`
	Label  string `yaml:"label"`
}

// KeyConfig selects either a PEM key file or an HSM-resident key. Exactly
// one of File or PKCS11.Module must be set.
type KeyConfig struct {
	File   string       `yaml:"file"`
	PKCS11 PKCS11Config `yaml:"pkcs11"`
}

// LoadKey loads a responder's private signing key, from a PEM file or from
// an HSM via PKCS#11, the way the teacher's ca.loadKey does. Exported so
// operational tooling (cmd/crl-build) that signs with the same issuer key
// can reuse it without duplicating PKCS#11 wiring.
func LoadKey(keyConfig KeyConfig) (crypto.Signer, error) {
	if keyConfig.File != "" {
		keyBytes, err := os.ReadFile(keyConfig.File)
		if err != nil {
			return nil, fmt.Errorf("registry: reading key file %s: %w", keyConfig.File, err)
		}
		return helpers.ParsePrivateKeyPEM(keyBytes)
	}

	pkcs11Config := keyConfig.PKCS11
	if pkcs11Config.Module == "" {
		return nil, fmt.Errorf("registry: key config has neither File nor PKCS11.Module set")
	}
	return pkcs11key.New(pkcs11Config.Module, pkcs11Config.Token, pkcs11Config.PIN, pkcs11Config.Label)
}

// LoadIssuerCert loads a trusted issuer's certificate from a PEM or DER
// file.
func LoadIssuerCert(filename string) (*x509.Certificate, error) {
	if filename == "" {
		return nil, fmt.Errorf("registry: issuer certificate path is empty")
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("registry: reading issuer certificate %s: %w", filename, err)
	}
	cert, err := certinfo.ParsePEMOrDER(contents)
	if err != nil {
		return nil, fmt.Errorf("registry: parsing issuer certificate %s: %w", filename, err)
	}
	return cert, nil
}
