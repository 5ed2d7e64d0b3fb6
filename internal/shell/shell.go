// Package shell is the operator command line read from stdin.
package shell

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/wincast/internal/logger"
)

// Command is the shell's inbound control type.
type Command int

const (
	// CommandQuit stops the read loop.
	CommandQuit Command = iota
)

// Message is the shell's outbound status type. Reserved: no variants are
// defined yet; the channel pins the contract for future operator-initiated
// events.
type Message interface {
	isShellMessage()
}

// Shell reads operator commands line by line.
type Shell struct {
	cmds   chan Command
	msgs   chan Message
	status func() string
}

// New builds a shell. status renders the runtime snapshot printed by the
// "status" command.
func New(status func() string) *Shell {
	return &Shell{
		cmds:   make(chan Command, 1),
		msgs:   make(chan Message, 1),
		status: status,
	}
}

// Commands is the shell's inbound command sink.
func (s *Shell) Commands() chan<- Command {
	return s.cmds
}

// Messages is the shell's outbound status source.
func (s *Shell) Messages() <-chan Message {
	return s.msgs
}

// Run services stdin until CommandQuit arrives. Reading happens in a
// helper goroutine because stdin reads cannot be interrupted; after quit
// the helper dies with the process.
func (s *Shell) Run() {
	log := logger.WithComponent("shell")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(`wincast shell - type "help" for commands`)

	for {
		select {
		case cmd := <-s.cmds:
			if cmd == CommandQuit {
				log.Debug().Msg("shell stopped")
				return
			}
		case line, ok := <-lines:
			if !ok {
				// stdin closed (EOF); nothing more to read, but the
				// shell stays up until it is told to quit.
				log.Debug().Msg("stdin closed")
				if cmd := <-s.cmds; cmd == CommandQuit {
					return
				}
				continue
			}
			s.dispatch(strings.TrimSpace(line))
		}
	}
}

func (s *Shell) dispatch(line string) {
	switch line {
	case "":
	case "help":
		fmt.Println("commands:")
		fmt.Println("  status  show focus and session state")
		fmt.Println("  help    show this help")
		fmt.Println("close the viewer window (or press Ctrl+C) to exit")
	case "status":
		if s.status != nil {
			fmt.Println(s.status())
		}
	default:
		fmt.Printf("unknown command %q - type \"help\"\n", line)
	}
}
