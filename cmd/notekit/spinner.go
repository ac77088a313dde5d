package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// spinner shows progress on a terminal. The message can change while it
// runs.
type spinner struct {
	mu      sync.Mutex
	w       io.Writer
	delay   time.Duration
	message string
	last    int
	stop    chan struct{}
	done    chan struct{}
}

func newSpinner(w io.Writer, delay time.Duration) *spinner {
	return &spinner{w: w, delay: delay, stop: make(chan struct{}), done: make(chan struct{})}
}

func (s *spinner) Start() {
	go func() {
		defer close(s.done)
		for {
			for _, r := range `⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏` {
				select {
				case <-s.stop:
					return
				default:
				}
				s.mu.Lock()
				out := fmt.Sprintf("\r%s %c", s.message, r)
				fmt.Fprint(s.w, out)
				s.last = len(out)
				s.mu.Unlock()
				time.Sleep(s.delay)
			}
		}
	}()
}

func (s *spinner) Set(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Stop clears the line and waits for the drawing goroutine.
func (s *spinner) Stop() {
	close(s.stop)
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.w, "\r\033[K")
}

// quietSpinner is used when stderr is not a terminal.
type quietSpinner struct{}

func (quietSpinner) Start()     {}
func (quietSpinner) Set(string) {}
func (quietSpinner) Stop()      {}

type progress interface {
	Start()
	Set(msg string)
	Stop()
}
