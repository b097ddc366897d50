package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const debugPrefix = "[DEBUG]"

// DebugLog provides a logger which allows filtering of [DEBUG] log messages
type DebugLog struct {
	Logger *log.Logger
	out    io.Writer
	w      *io.PipeWriter
	done   chan struct{}
	debug  bool
	mux    sync.Mutex
}

func NewDebugLog(out io.Writer, prefix string, flag int, debug bool) *DebugLog {
	r, w := io.Pipe()
	l := &DebugLog{
		Logger: log.New(w, prefix, flag),
		out:    out,
		w:      w,
		done:   make(chan struct{}),
		debug:  debug,
	}
	go l.filter(r)
	return l
}

func (l *DebugLog) SetDebug(d bool) {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.debug = d
}

func (l *DebugLog) Debug() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.debug
}

// Close flushes the pending messages and closes the output, unless it is
// stdout or stderr.
func (l *DebugLog) Close() {
	l.w.Close()
	<-l.done
	if l.out == os.Stdout || l.out == os.Stderr {
		return
	}
	if c, ok := l.out.(io.Closer); ok {
		c.Close()
	}
}

func (l *DebugLog) filter(r *io.PipeReader) {
	defer close(l.done)
	defer r.Close()
	s := bufio.NewScanner(r)
	for s.Scan() {
		m := s.Text()
		if l.Debug() || !strings.Contains(m, debugPrefix) {
			fmt.Fprintln(l.out, m)
		}
	}
}
