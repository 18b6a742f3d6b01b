// Package commandlog implements the textual command log that records network
// mutations one per line and rebuilds a network by replaying them.
//
// Grammar:
//
//	OP WS ARG1 [WS ARG2]
//
// OP is "a" (add) or "r" (remove). One argument names a user; two name a
// friendship. Any other single-token OP (the "s" central-user marker, for
// example) is accepted and carries no graph effect. A blank line ends the log.
package commandlog

import (
	"strings"

	"socialnet/internal/network"
	apperrors "socialnet/pkg/errors"
)

// Op is the leading token of a command line
type Op string

// OpSetCentral marks the central user. Replay reads it; the service never
// queues or exports it.
const (
	OpAdd        Op = "a"
	OpRemove     Op = "r"
	OpSetCentral Op = "s"
)

// Command is one parsed command-log line
type Command struct {
	Op   Op
	Args []string
}

// AddUser returns the command recording a new user
func AddUser(username string) Command {
	return Command{Op: OpAdd, Args: []string{username}}
}

// RemoveUser returns the command recording a removed user
func RemoveUser(username string) Command {
	return Command{Op: OpRemove, Args: []string{username}}
}

// AddFriend returns the command recording a new friendship
func AddFriend(user1, user2 string) Command {
	return Command{Op: OpAdd, Args: []string{user1, user2}}
}

// RemoveFriend returns the command recording a removed friendship
func RemoveFriend(user1, user2 string) Command {
	return Command{Op: OpRemove, Args: []string{user1, user2}}
}

// String renders the command in log form, fields separated by single spaces
func (c Command) String() string {
	return string(c.Op) + " " + strings.Join(c.Args, " ")
}

// IsFriendship reports whether the command names a pair of users
func (c Command) IsFriendship() bool {
	return len(c.Args) == 2
}

// Mutates reports whether the command has a defined graph effect
func (c Command) Mutates() bool {
	return c.Op == OpAdd || c.Op == OpRemove
}

// IsBlank reports whether line is the end-of-log marker
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Parse splits a command-log line into a Command. Add and remove commands
// must carry one or two arguments; other ops are kept verbatim.
// Usernames are validated later, when the command is applied.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, apperrors.NewMalformedCommand(line, "empty command")
	}

	cmd := Command{Op: Op(fields[0]), Args: fields[1:]}
	if !cmd.Mutates() {
		return cmd, nil
	}

	switch len(cmd.Args) {
	case 1, 2:
		return cmd, nil
	case 0:
		return Command{}, apperrors.NewMalformedCommand(line, "missing username")
	default:
		return Command{}, apperrors.NewMalformedCommand(line, "too many arguments")
	}
}

// Validate checks every argument against the username rules and rejects
// a user befriending themself
func (c Command) Validate() error {
	for _, arg := range c.Args {
		if err := network.ValidateUsername(arg); err != nil {
			return err
		}
	}
	if c.Op == OpAdd && c.IsFriendship() {
		return network.ValidateFriendship(c.Args[0], c.Args[1])
	}
	return nil
}
