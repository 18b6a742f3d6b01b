package codec

import (
	"bufio"
	"fmt"
	"io"

	"socialnet/internal/commandlog"
	"socialnet/internal/network"
)

// LogCodec renders a snapshot as a compacted command log: one "a" line per
// user, then one per friendship. Exports hold only "a" lines, so the
// central user does not survive a round trip; Parse still honors "s" markers.
type LogCodec struct{}

// NewLogCodec creates a new command-log codec
func NewLogCodec() *LogCodec {
	return &LogCodec{}
}

// Format returns the codec format identifier
func (c *LogCodec) Format() string {
	return "log"
}

// Parse replays a command log into a scratch network and captures the result
func (c *LogCodec) Parse(r io.Reader) (*Snapshot, error) {
	scratch := network.New()
	res, err := commandlog.Replay(r, scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command log: %w", err)
	}

	snapshot := FromNetwork(scratch)
	if res.CentralUser != "" && scratch.HasUser(res.CentralUser) {
		snapshot.CentralUser = res.CentralUser
	}
	return snapshot, nil
}

// Export writes the snapshot as command-log lines
func (c *LogCodec) Export(snapshot *Snapshot, w io.Writer) error {
	bw := bufio.NewWriter(w)
	write := func(cmd commandlog.Command) error {
		_, err := bw.WriteString(cmd.String() + "\n")
		return err
	}

	for _, u := range snapshot.Users {
		if err := write(commandlog.AddUser(u)); err != nil {
			return fmt.Errorf("failed to write command log: %w", err)
		}
	}
	for _, f := range snapshot.Friendships {
		if err := write(commandlog.AddFriend(f.A, f.B)); err != nil {
			return fmt.Errorf("failed to write command log: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush command log: %w", err)
	}
	return nil
}
