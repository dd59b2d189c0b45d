// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package log provides the AuditLogger the rest of this responder logs
// through: a syslog-backed logger with an optional stdout mirror, matching
// the shape of the boulder-era blog.AuditLogger (GetAuditLogger,
// Warning/Info/Err/Crit/Debug/Audit) that this codebase's other packages
// call against.
package log

import (
	"fmt"
	"log/syslog"
	"os"
	"sync"
)

// Level mirrors syslog priority ordering, lowest-to-highest severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelErr
	LevelCrit
)

// AuditLogger writes to syslog (when configured) and, for messages at or
// above stdoutLevel, to os.Stdout. Audit-level messages are always written
// to both, regardless of level, since they record security-relevant events
// operators must not lose.
type AuditLogger struct {
	mu          sync.Mutex
	writer      *syslog.Writer
	stdout      *os.File
	stdoutLevel Level
}

var (
	defaultLogger     *AuditLogger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.Mutex
)

// New constructs an AuditLogger. network/server follow net.Dial conventions
// ("udp", "host:514"); an empty network disables syslog and logs only to
// stdout. tag is the syslog program identity.
func New(network, server, tag string, stdoutLevel Level) (*AuditLogger, error) {
	l := &AuditLogger{stdout: os.Stdout, stdoutLevel: stdoutLevel}
	if network != "" {
		w, err := syslog.Dial(network, server, syslog.LOG_INFO|syslog.LOG_LOCAL0, tag)
		if err != nil {
			return nil, fmt.Errorf("log: dialing syslog: %w", err)
		}
		l.writer = w
	}
	return l, nil
}

// NewMock returns an AuditLogger with no syslog backend, suitable for tests
// that only need to call logging methods without inspecting output.
func NewMock() *AuditLogger {
	return &AuditLogger{stdout: os.Stdout, stdoutLevel: LevelCrit + 1}
}

// SetAuditLogger installs l as the process-wide default logger.
func SetAuditLogger(l *AuditLogger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// GetAuditLogger returns the process-wide default logger, constructing a
// stdout-only one on first use if none was installed.
func GetAuditLogger() *AuditLogger {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if defaultLogger == nil {
		defaultLoggerOnce.Do(func() {})
		defaultLogger = NewMock()
	}
	return defaultLogger
}

func (l *AuditLogger) log(level Level, prefix, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s%s", prefix, msg)
	if level >= l.stdoutLevel {
		fmt.Fprintln(l.stdout, line)
	}
	if l.writer == nil {
		return
	}
	switch level {
	case LevelDebug:
		l.writer.Debug(line)
	case LevelInfo:
		l.writer.Info(line)
	case LevelWarning:
		l.writer.Warning(line)
	case LevelErr:
		l.writer.Err(line)
	case LevelCrit:
		l.writer.Crit(line)
	}
}

func (l *AuditLogger) Debug(msg string)   { l.log(LevelDebug, "", msg) }
func (l *AuditLogger) Info(msg string)    { l.log(LevelInfo, "", msg) }
func (l *AuditLogger) Warning(msg string) { l.log(LevelWarning, "", msg) }
func (l *AuditLogger) Err(msg string)     { l.log(LevelErr, "", msg) }
func (l *AuditLogger) Crit(msg string)    { l.log(LevelCrit, "", msg) }

// Audit always logs, regardless of configured level, with an "[AUDIT] "
// prefix so a syslog consumer can filter on it independently of severity.
func (l *AuditLogger) Audit(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := "[AUDIT] " + msg
	fmt.Fprintln(l.stdout, line)
	if l.writer != nil {
		l.writer.Notice(line)
	}
}
