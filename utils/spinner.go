package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// SuccessColor paints successful progress and result lines.
	SuccessColor = color.New(color.FgHiGreen)
	// ErrorColor paints failures.
	ErrorColor = color.New(color.FgHiRed)
)

// Spinner initializes the process indicator.
type Spinner struct {
	out      io.Writer
	active   bool
	stopChan chan struct{}
	done     sync.WaitGroup
}

// NewSpinner instantiates a new Spinner writing to stderr.
// The spinner stays silent when stderr is not a terminal.
func NewSpinner() *Spinner {
	return &Spinner{
		out:    os.Stderr,
		active: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Start starts the process indicator.
func (s *Spinner) Start(message string) {
	if !s.active {
		return
	}
	s.stopChan = make(chan struct{})
	s.done.Add(1)

	go func() {
		defer s.done.Done()
		for {
			for _, r := range `-\|/` {
				select {
				case <-s.stopChan:
					fmt.Fprint(s.out, "\r")
					return
				default:
					fmt.Fprintf(s.out, "\r%s %s", message, SuccessColor.Sprintf("%c", r))
					time.Sleep(time.Millisecond * 100)
				}
			}
		}
	}()
}

// Stop stops the process indicator and waits until the last frame is cleared.
func (s *Spinner) Stop() {
	if !s.active || s.stopChan == nil {
		return
	}
	close(s.stopChan)
	s.done.Wait()
	s.stopChan = nil
}
