// Package log has the logging interface of the tasksync SDK.
//
// The SDK accepts any implementation of [Logger], [Noop] (the default)
// discards everything. Applications already using logrus can use [NewLogrus]:
//
//	logger := log.NewLogrus(logrus.NewEntry(logrus.StandardLogger()))
//	client, err := lib.New(ctx, lib.Config{APIURL: apiURL, Logger: logger})
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/slok/tasksync/internal/log"
	loglogrus "github.com/slok/tasksync/internal/log/logrus"
)

// Logger is the interface that loggers must implement for the SDK.
//
// Only the format methods (Infof, Warningf, Errorf, Debugf) need meaningful
// implementations, the rest can return the same logger.
type Logger = log.Logger

// Kv is a helper type for structured logging key-value pairs.
type Kv = log.Kv

// Noop is a logger that discards all log output.
var Noop = log.Noop

// NewLogrus returns a Logger backed by a logrus entry.
func NewLogrus(l *logrus.Entry) Logger {
	return loglogrus.NewLogrus(l)
}
