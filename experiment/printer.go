package experiment

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// Output holds the latest status line of a running session
type Output struct {
	mu        sync.Mutex
	printable string
}

func NewOutput() *Output {
	return &Output{}
}

// Set the output string (blocking)
func (o *Output) Set(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.printable = s
}

// Get the output string (blocking)
func (o *Output) Get() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.printable
}

// TerminalPrinter redraws the session output in place at a fixed frequency
type TerminalPrinter struct {
	output    *Output
	frequency time.Duration
	writer    *uilive.Writer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTerminalPrinter(output *Output, out io.Writer, frequency time.Duration) *TerminalPrinter {
	writer := uilive.New()
	writer.Out = out
	return &TerminalPrinter{
		output:    output,
		frequency: frequency,
		writer:    writer,
		done:      make(chan struct{}),
	}
}

func (p *TerminalPrinter) Start(ctx context.Context) {
	printerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-printerCtx.Done():
				p.print()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop prints the last output and waits for the printer to exit
func (p *TerminalPrinter) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *TerminalPrinter) print() {
	s := p.output.Get()
	if s == "" {
		return
	}
	fmt.Fprintln(p.writer, s)
	p.writer.Flush()
}
