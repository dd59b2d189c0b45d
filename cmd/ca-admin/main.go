// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command ca-admin is the optional admin tooling spec §6 names: record a
// newly issued certificate into the backing store, and revoke/restore an
// existing one by serial.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/codegangsta/cli"

	"github.com/bseddon/ocsp-responder/certinfo"
	"github.com/bseddon/ocsp-responder/cmd"
	"github.com/bseddon/ocsp-responder/ocsp"
	"github.com/bseddon/ocsp-responder/store"
)

func openWritableStore(c *cli.Context) store.WritableStore {
	var cfg cmd.CAAdminConfig
	err := cmd.ReadConfigFile(c.GlobalString("config"), &cfg)
	cmd.FailOnError(err, "reading config file")

	if cfg.Store.File == "" {
		cmd.FailOnError(fmt.Errorf("ca-admin currently only supports a file-backed store"), "opening revocation store")
	}
	return &store.FileStore{Path: cfg.Store.File}
}

func main() {
	app := cli.NewApp()
	app.Name = "ca-admin"
	app.Usage = "Record and revoke certificates in the revocation store"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Value:  "config.json",
			EnvVar: "OCSP_RESPONDER_CONFIG",
			Usage:  "Path to the JSON configuration file",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "record",
			Usage:     "Record a newly issued certificate, deriving its serial and expiry from the certificate itself",
			ArgsUsage: "CERT_PATH",
			Action: func(c *cli.Context) error {
				certPath := c.Args().Get(0)
				if certPath == "" {
					return fmt.Errorf("usage: record CERT_PATH")
				}
				contents, err := os.ReadFile(certPath)
				if err != nil {
					return fmt.Errorf("reading %s: %w", certPath, err)
				}
				cert, err := certinfo.ParsePEMOrDER(contents)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", certPath, err)
				}
				info, err := certinfo.X509Collaborator{}.Parse(cert.Raw)
				if err != nil {
					return fmt.Errorf("extracting certificate info from %s: %w", certPath, err)
				}

				serial := strings.ToUpper(hex.EncodeToString(info.SerialNumber))
				expiry := time.Unix(info.NotAfter, 0).UTC()

				st := openWritableStore(c)
				if err := st.Record(serial, expiry); err != nil {
					return fmt.Errorf("recording %s: %w", serial, err)
				}
				fmt.Printf("recorded %s (subject %s), expiring %s\n", serial, info.Subject, expiry.Format(time.RFC3339))
				return nil
			},
		},
		{
			Name:      "revoke",
			Usage:     "Revoke a certificate by serial",
			ArgsUsage: "SERIAL_HEX REASON_NAME",
			Action: func(c *cli.Context) error {
				serial := c.Args().Get(0)
				reason := c.Args().Get(1)
				if reason != "" {
					if _, ok := ocsp.ReasonCode(reason); !ok {
						return fmt.Errorf("unrecognised revocation reason %q", reason)
					}
				}
				st := openWritableStore(c)
				if err := st.Revoke(serial, reason, cmd.Clock().Now()); err != nil {
					return fmt.Errorf("revoking %s: %w", serial, err)
				}
				fmt.Printf("revoked %s (%s)\n", serial, reason)
				return nil
			},
		},
		{
			Name:      "restore",
			Usage:     "Restore a previously revoked certificate to valid status",
			ArgsUsage: "SERIAL_HEX",
			Action: func(c *cli.Context) error {
				serial := c.Args().Get(0)
				st := openWritableStore(c)
				if err := st.Restore(serial); err != nil {
					return fmt.Errorf("restoring %s: %w", serial, err)
				}
				fmt.Printf("restored %s\n", serial)
				return nil
			},
		},
		{
			Name:  "list-reasons",
			Usage: "List all revocation reason names",
			Action: func(c *cli.Context) error {
				for code := 0; code <= 10; code++ {
					if name, ok := ocsp.ReasonName(code); ok {
						fmt.Printf("%d: %s\n", code, name)
					}
				}
				return nil
			},
		},
	}

	err := app.Run(os.Args)
	cmd.FailOnError(err, "ca-admin command failed")
}
