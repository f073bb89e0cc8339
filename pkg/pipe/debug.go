/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pipe

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logLevelEnv = "PIPE_LOG_LEVEL"

type logger struct {
	sugar atomic.Pointer[zap.SugaredLogger]
}

var (
	level          = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	internalLogger = newLogger()
)

func init() {
	levelFromEnv()
}

// levelFromEnv applies PIPE_LOG_LEVEL when it holds a valid zap level name.
func levelFromEnv() {
	if v := os.Getenv(logLevelEnv); v != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			level.SetLevel(l)
		}
	}
}

func newLogger() *logger {
	l := &logger{}
	l.set(defaultZapLogger())
	return l
}

// defaultZapLogger writes colored console lines to stdout at the package level.
func defaultZapLogger() *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.AddCaller()).Named("pipe")
}

func (l *logger) set(z *zap.Logger) {
	l.sugar.Store(z.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

// SetLogLevel changes the level of the package's default logger. The level
// starts at Warn, or at the value of PIPE_LOG_LEVEL when that is set at
// startup. It has no effect on a logger installed with SetLogger.
func SetLogLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// SetLogger replaces the package logger. A nil logger silences the package.
func SetLogger(z *zap.Logger) {
	if z == nil {
		z = zap.NewNop()
	}
	internalLogger.set(z)
}

func (l *logger) errorf(format string, a ...interface{}) {
	l.sugar.Load().Errorf(format, a...)
}

func (l *logger) warnf(format string, a ...interface{}) {
	l.sugar.Load().Warnf(format, a...)
}

func (l *logger) infof(format string, a ...interface{}) {
	l.sugar.Load().Infof(format, a...)
}

func (l *logger) debugf(format string, a ...interface{}) {
	l.sugar.Load().Debugf(format, a...)
}
