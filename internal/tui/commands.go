package tui

import (
	"errors"
	"fmt"
	"strings"
)

// CommandKind identifies what an input line asks for.
type CommandKind int

const (
	CmdSend CommandKind = iota
	CmdRegister
	CmdLogin
	CmdLogout
	CmdAttach
	CmdDetach
	CmdHelp
	CmdQuit
)

// Command is a parsed input line.
type Command struct {
	Kind CommandKind
	Text string
	Args []string
}

var errUsage = errors.New("usage")

const helpText = "/register <email> <password> [name] | /login <email> <password> | /logout | /attach <path> | /detach | /quit"

// EscapeMessage turns message text back into an input line that ParseCommand
// reads as the same message.
func EscapeMessage(text string) string {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return "/" + strings.TrimLeft(text, " \t")
	}
	return text
}

// ParseCommand reads one line of input. Lines not starting with "/" are
// messages; "//" escapes a message that itself starts with a slash.
func ParseCommand(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdSend, Text: line}, nil
	}
	if strings.HasPrefix(trimmed, "//") {
		return Command{Kind: CmdSend, Text: trimmed[1:]}, nil
	}

	fields := strings.Fields(trimmed)
	name, args := fields[0], fields[1:]
	switch name {
	case "/register":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("%w: /register <email> <password> [name]", errUsage)
		}
		return Command{Kind: CmdRegister, Args: []string{args[0], args[1], strings.Join(args[2:], " ")}}, nil
	case "/login":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: /login <email> <password>", errUsage)
		}
		return Command{Kind: CmdLogin, Args: args}, nil
	case "/logout":
		return Command{Kind: CmdLogout}, nil
	case "/attach":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: /attach <path>", errUsage)
		}
		// paths may contain spaces
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, "/attach"))
		return Command{Kind: CmdAttach, Args: []string{path}}, nil
	case "/detach":
		return Command{Kind: CmdDetach}, nil
	case "/help":
		return Command{Kind: CmdHelp}, nil
	case "/quit", "/exit":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %s, try /help", name)
	}
}
