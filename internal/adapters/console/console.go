// Package console reads answers from a terminal and prints daemon events to it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Console implements ConsolePort and ConfirmPort over a line-oriented terminal
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	lines chan string
}

// New starts reading lines from in; the reader goroutine ends when in is exhausted
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lines: make(chan string)}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.lines <- strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("console input closed")
	}
}

// Printf writes one line
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

// Confirm asks until it gets y/yes or n/no. Input that ends before an answer returns io.EOF.
func (c *Console) Confirm(ctx context.Context, question, yes, no string) (bool, error) {
	c.Printf("%s [y = %s / n = %s]", question, yes, no)
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case line, ok := <-c.lines:
			if !ok {
				return false, io.EOF
			}
			switch strings.ToLower(line) {
			case "y", "yes":
				return true, nil
			case "n", "no":
				return false, nil
			}
			c.Printf("Please answer y or n.")
		}
	}
}
