// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"

	alog "github.com/bseddon/ocsp-responder/log"
)

// mysqlLogger proxies AuditLogger so borp/mysql can log through it.
type mysqlLogger struct {
	*alog.AuditLogger
}

func (m mysqlLogger) Print(v ...interface{}) {
	m.Err(fmt.Sprintf("[mysql] %s", fmt.Sprint(v...)))
}

// StatsAndLogging constructs the process-wide AuditLogger and Prometheus
// registerer from a SyslogConfig, installs the logger as the package
// default, and wires it into the mysql driver's logging hook. Crashes if
// setup fails, since a responder that cannot log should not start serving.
func StatsAndLogging(logConf SyslogConfig) (prometheus.Registerer, *alog.AuditLogger) {
	tag := path.Base(os.Args[0])
	network := logConf.Network
	stdoutLevel := alog.LevelInfo
	if logConf.StdoutLevel != nil {
		stdoutLevel = alog.Level(*logConf.StdoutLevel)
	}

	logger, err := alog.New(network, logConf.Server, tag, stdoutLevel)
	FailOnError(err, "Could not start audit logger")
	alog.SetAuditLogger(logger)

	if err := mysql.SetLogger(mysqlLogger{logger}); err != nil {
		logger.Warning(fmt.Sprintf("could not install mysql logger: %s", err))
	}

	return prometheus.DefaultRegisterer, logger
}

// FailOnError logs msg and err, then exits the process. Used during startup,
// before a responder is serving traffic, where there is no graceful
// degradation to attempt.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	logger := alog.GetAuditLogger()
	logger.Crit(fmt.Sprintf("%s: %s", msg, err))
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
	os.Exit(1)
}

// ReadConfigFile unmarshals the JSON file at filename into out.
func ReadConfigFile(filename string, out interface{}) error {
	configData, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(configData, out)
}

// VersionString produces a friendly application version string for startup
// logging.
func VersionString() string {
	name := path.Base(os.Args[0])
	return fmt.Sprintf("Versions: %s Golang=(%s)", name, runtime.Version())
}

// Clock returns the default wall clock.
func Clock() clock.Clock {
	return clock.Default()
}

var signalToName = map[os.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGHUP:  "SIGHUP",
}

// CatchSignals blocks until SIGTERM, SIGINT, or SIGHUP arrives, then runs
// callback (typically a graceful HTTP server shutdown) before exiting.
func CatchSignals(logger *alog.AuditLogger, callback func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	sig := <-sigChan
	logger.Info(fmt.Sprintf("Caught %s", signalToName[sig]))

	if callback != nil {
		callback()
	}

	logger.Info("Exiting")
	os.Exit(0)
}
