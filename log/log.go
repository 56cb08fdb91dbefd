// log.go - Logging backend.
// Copyright (C) 2017  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package log provides the leveled logging backend used by the client and
// the command line tool.
package log

import (
	"fmt"
	"io"
	goLog "log"
	"os"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

const logFormat = "%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Backend is a log backend shared by all module loggers.
type Backend struct {
	sync.RWMutex

	backend logging.LeveledBackend
	w       io.WriteCloser

	file    string
	level   string
	disable bool
}

// Log implements logging.Backend.
func (b *Backend) Log(level logging.Level, calldepth int, record *logging.Record) error {
	b.RLock()
	defer b.RUnlock()
	return b.backend.Log(level, calldepth, record)
}

// GetLevel implements logging.Leveled.
func (b *Backend) GetLevel(module string) logging.Level {
	b.RLock()
	defer b.RUnlock()
	return b.backend.GetLevel(module)
}

// SetLevel implements logging.Leveled.
func (b *Backend) SetLevel(level logging.Level, module string) {
	b.RLock()
	defer b.RUnlock()
	b.backend.SetLevel(level, module)
}

// IsEnabledFor implements logging.Leveled.
func (b *Backend) IsEnabledFor(level logging.Level, module string) bool {
	b.RLock()
	defer b.RUnlock()
	return b.backend.IsEnabledFor(level, module)
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b)
	return l
}

// GetGoLogger returns a standard library *log.Logger writing to the backend
// at a single level, for use with net/http and similar.
func (b *Backend) GetGoLogger(module string, level string) *goLog.Logger {
	lvl, err := logLevelFromString(level)
	if err != nil {
		panic("log: GetGoLogger(): " + err.Error())
	}
	return goLog.New(&logWriter{m: b.GetLogger(module), lvl: lvl}, "", 0)
}

// Rotate reopens the log file.
func (b *Backend) Rotate() error {
	b.Lock()
	defer b.Unlock()
	if err := b.w.Close(); err != nil {
		return err
	}
	return b.newBackend()
}

func (b *Backend) newBackend() error {
	lvl, err := logLevelFromString(b.level)
	if err != nil {
		return err
	}

	switch {
	case b.disable:
		b.w = nopCloser{io.Discard}
	case b.file == "":
		b.w = nopCloser{os.Stdout}
	default:
		const fileMode = 0600
		f, err := os.OpenFile(b.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
		if err != nil {
			return fmt.Errorf("log: failed to create log file: %v", err)
		}
		b.w = f
	}

	formatted := logging.NewBackendFormatter(logging.NewLogBackend(b.w, "", 0), logging.MustStringFormatter(logFormat))
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(lvl, "")
	return nil
}

// New creates a backend writing to file, or stdout if file is empty.
// If disable is set all output is discarded.
func New(file string, level string, disable bool) (*Backend, error) {
	b := &Backend{
		file:    file,
		level:   level,
		disable: disable,
	}
	if err := b.newBackend(); err != nil {
		return nil, err
	}
	return b, nil
}

// Discard returns a backend that drops everything.
func Discard() *Backend {
	b, err := New("", "ERROR", true)
	if err != nil {
		panic(err)
	}
	return b
}

// ValidLevel returns an error if level is not a known log level.
func ValidLevel(level string) error {
	_, err := logLevelFromString(level)
	return err
}

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}

type logWriter struct {
	m   *logging.Logger
	lvl logging.Level
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	s := strings.TrimSpace(string(p))
	if len(s) == 0 {
		return len(p), nil
	}
	switch w.lvl {
	case logging.ERROR:
		w.m.Error(s)
	case logging.WARNING:
		w.m.Warning(s)
	case logging.NOTICE:
		w.m.Notice(s)
	case logging.INFO:
		w.m.Info(s)
	default:
		w.m.Debug(s)
	}
	return len(p), nil
}
