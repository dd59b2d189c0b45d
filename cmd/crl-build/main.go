// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command crl-build is the operational entry point spec §6 requires:
// rebuild and sign a CRL from the current revocation store, writing the
// result to a local path or an s3:// URI.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bseddon/ocsp-responder/cmd"
	"github.com/bseddon/ocsp-responder/crl"
	"github.com/bseddon/ocsp-responder/ocsp"
	"github.com/bseddon/ocsp-responder/registry"
	"github.com/bseddon/ocsp-responder/store"
)

func main() {
	configFile := flag.String("config", "", "File path to the configuration file for this command")
	flag.Parse()
	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	var c cmd.CRLBuildConfig
	err := cmd.ReadConfigFile(*configFile, &c)
	cmd.FailOnError(err, "reading config file")
	err = cmd.ValidateConfig(c)
	cmd.FailOnError(err, "validating config")

	issuer, err := registry.LoadIssuerCert(c.IssuerCertificate)
	cmd.FailOnError(err, "loading issuer certificate")
	key, err := registry.LoadKey(c.IssuerKey)
	cmd.FailOnError(err, "loading issuer key")

	if c.Store.File == "" {
		cmd.FailOnError(fmt.Errorf("crl-build currently only supports a file-backed store"), "reading revocation store")
	}
	fs := &store.FileStore{Path: c.Store.File}

	entries, err := fs.Entries()
	cmd.FailOnError(err, "reading revocation store entries")

	revoked, err := revokedEntries(entries)
	cmd.FailOnError(err, "building revoked-certificate list")

	now := cmd.Clock().Now()
	crlDER, err := crl.Build(issuer, key, crl.Metadata{
		Number:  c.Number,
		Version: c.Version,
		Days:    c.Days,
		Legacy:  c.Legacy,
	}, revoked, now)
	cmd.FailOnError(err, "building CRL")

	err = writeOut(c.Out, crlDER)
	cmd.FailOnError(err, fmt.Sprintf("writing CRL to %s", c.Out))
}

// revokedEntries filters the index down to revoked serials and converts
// each into the shape crl.Build expects.
func revokedEntries(entries []store.IndexEntry) ([]crl.RevokedEntry, error) {
	revoked := make([]crl.RevokedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Record.Status != ocsp.StatusRevoked {
			continue
		}
		serial, ok := new(big.Int).SetString(e.SerialHex, 16)
		if !ok {
			return nil, fmt.Errorf("malformed serial %q in store", e.SerialHex)
		}
		revocationTime, reason, err := ocsp.ParseRevokedDate(e.Record.RevokedDate)
		if err != nil {
			return nil, fmt.Errorf("serial %s: %w", e.SerialHex, err)
		}
		revoked = append(revoked, crl.RevokedEntry{
			Serial:         serial,
			RevocationDate: revocationTime,
			Reason:         reason,
		})
	}
	return revoked, nil
}

func writeOut(out string, data []byte) error {
	if strings.HasPrefix(out, "s3://") {
		return writeS3(out, data)
	}
	return os.WriteFile(out, data, 0644)
}

func writeS3(uri string, data []byte) error {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid s3 URI %q, expected s3://bucket/key", uri)
	}
	bucket, key := parts[0], parts[1]

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pkix-crl"),
	})
	return err
}
