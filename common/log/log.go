// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log 日志相关接口以及函数
package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/33cn/dispatch/types"
	log15 "github.com/inconshreveable/log15"
	colorable "github.com/mattn/go-colorable"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger module logger
type Logger = log15.Logger

// sinks the handlers installed on the root logger
type sinks struct {
	mu     sync.Mutex
	rotate *lumberjack.Logger
}

var root sinks

// New logger carrying ctx on every line, e.g. New("module", "executor")
func New(ctx ...interface{}) Logger {
	return log15.Root().New(ctx...)
}

// SetLogLevel 只保留控制台输出, 级别为logLevel
func SetLogLevel(logLevel string) {
	root.install(consoleHandler(logLevel), nil)
}

// SetOutput writes every line at or above logLevel to w
func SetOutput(w io.Writer, logLevel string) {
	root.install(log15.LvlFilterHandler(level(logLevel), log15.StreamHandler(w, log15.LogfmtFormat())), nil)
}

// SetFileLog 根据配置设置控制台和文件日志, 没有文件名时只输出到控制台
func SetFileLog(cfg *types.Log) {
	if cfg == nil {
		cfg = &types.Log{LogFile: "logs/dispatch.log"}
	}
	// 默认error级别，防止打印太多日志
	if cfg.Loglevel == "" {
		cfg.Loglevel = log15.LvlError.String()
	}
	if cfg.LogConsoleLevel == "" {
		cfg.LogConsoleLevel = log15.LvlError.String()
	}
	console := consoleHandler(cfg.LogConsoleLevel)
	if cfg.LogFile == "" {
		root.install(console, nil)
		return
	}
	rotate := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    int(cfg.MaxFileSize),
		MaxBackups: int(cfg.MaxBackups),
		MaxAge:     int(cfg.MaxAge),
		LocalTime:  cfg.LocalTime,
		Compress:   cfg.Compress,
	}
	file := log15.LvlFilterHandler(level(cfg.Loglevel), log15.StreamHandler(rotate, log15.LogfmtFormat()))
	if cfg.CallerFile {
		file = log15.CallerFileHandler(file)
	}
	if cfg.CallerFunction {
		file = log15.CallerFuncHandler(file)
	}
	root.install(log15.MultiHandler(console, file), rotate)
}

// Close flushes and closes the rotating file, if any
func Close() error {
	root.mu.Lock()
	defer root.mu.Unlock()
	if root.rotate == nil {
		return nil
	}
	err := root.rotate.Close()
	root.rotate = nil
	return err
}

func (s *sinks) install(h log15.Handler, rotate *lumberjack.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotate != nil && s.rotate != rotate {
		s.rotate.Close()
	}
	s.rotate = rotate
	log15.Root().SetHandler(h)
}

func consoleHandler(logLevel string) log15.Handler {
	format := log15.TerminalFormat()
	if runtime.GOOS == "windows" {
		format = log15.LogfmtFormat()
	}
	return log15.LvlFilterHandler(level(logLevel), log15.StreamHandler(colorable.NewColorable(os.Stdout), format))
}

// level 配置不正确时为error级别
func level(s string) log15.Lvl {
	lvl, err := log15.LvlFromString(s)
	if err != nil {
		return log15.LvlError
	}
	return lvl
}
