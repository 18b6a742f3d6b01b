package commandlog

import (
	"bufio"
	"fmt"
	"io"
	"os"

	apperrors "socialnet/pkg/errors"
)

// DefaultMaxLineBytes bounds a single command-log line
const DefaultMaxLineBytes = 1 << 20

// Target is the part of a social network that replay drives
type Target interface {
	AddUser(username string) error
	EnsureUser(username string) (bool, error)
	RemoveUser(username string) error
	AddFriend(user1, user2 string) error
	RemoveFriend(user1, user2 string) error
}

// ReplayResult describes a finished replay
type ReplayResult struct {
	// Lines counts non-blank lines read, including the one that failed
	Lines int
	// Applied counts commands that changed or confirmed graph state
	Applied int
	// Skipped counts tolerated commands: duplicate adds and removals of absent users
	Skipped int
	// Commands holds the applied commands in order
	Commands []Command
	// CentralUser is the argument of the last "s" marker, if any
	CentralUser string
}

// Option configures a replay
type Option func(*replayer)

// WithMaxLineBytes overrides DefaultMaxLineBytes
func WithMaxLineBytes(n int) Option {
	return func(r *replayer) {
		if n > 0 {
			r.maxLineBytes = n
		}
	}
}

type replayer struct {
	target       Target
	maxLineBytes int
	result       *ReplayResult
}

// Replay reads commands from r and applies them to target until EOF or the
// first blank line. A command that fails validation stops the replay with an
// ErrReplayFailed naming the line; commands before it stay applied.
func Replay(r io.Reader, target Target, opts ...Option) (*ReplayResult, error) {
	rp := &replayer{
		target:       target,
		maxLineBytes: DefaultMaxLineBytes,
		result:       &ReplayResult{},
	}
	for _, opt := range opts {
		opt(rp)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, rp.maxLineBytes)), rp.maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if IsBlank(text) {
			break
		}
		rp.result.Lines++

		cmd, err := Parse(text)
		if err != nil {
			return rp.result, apperrors.NewReplayFailed(lineNo, text, err)
		}
		if err := rp.apply(cmd); err != nil {
			return rp.result, apperrors.NewReplayFailed(lineNo, text, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return rp.result, apperrors.NewReplayFailed(lineNo+1, "", err)
	}
	return rp.result, nil
}

// LoadFile opens path and replays it into target
func LoadFile(path string, target Target, opts ...Option) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open command log %s: %w", path, err)
	}
	defer f.Close()

	return Replay(f, target, opts...)
}

func (rp *replayer) apply(cmd Command) error {
	if !cmd.Mutates() {
		if cmd.Op == OpSetCentral && len(cmd.Args) == 1 {
			rp.result.CentralUser = cmd.Args[0]
		}
		return nil
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	var err error
	switch {
	case cmd.Op == OpAdd && !cmd.IsFriendship():
		err = rp.target.AddUser(cmd.Args[0])
		if apperrors.IsUserAlreadyExists(err) {
			rp.result.Skipped++
			return nil
		}
	case cmd.Op == OpAdd:
		err = rp.addFriend(cmd.Args[0], cmd.Args[1])
	case cmd.Op == OpRemove && !cmd.IsFriendship():
		err = rp.target.RemoveUser(cmd.Args[0])
	default:
		err = rp.target.RemoveFriend(cmd.Args[0], cmd.Args[1])
	}

	if cmd.Op == OpRemove && apperrors.IsUserNotFound(err) {
		rp.result.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	rp.result.Applied++
	rp.result.Commands = append(rp.result.Commands, cmd)
	return nil
}

// addFriend creates either endpoint if the log never added it
func (rp *replayer) addFriend(user1, user2 string) error {
	if _, err := rp.target.EnsureUser(user1); err != nil {
		return err
	}
	if _, err := rp.target.EnsureUser(user2); err != nil {
		return err
	}
	return rp.target.AddFriend(user1, user2)
}
