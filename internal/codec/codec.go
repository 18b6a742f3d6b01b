// Package codec converts a social network to and from portable snapshot
// formats: JSON, YAML, MessagePack, and the compacted command log.
package codec

import (
	"fmt"
	"io"
	"sort"

	"socialnet/internal/graph"
)

// Friendship is an undirected pair of usernames
type Friendship struct {
	A string `json:"a" yaml:"a" msgpack:"a"`
	B string `json:"b" yaml:"b" msgpack:"b"`
}

// Snapshot is the portable state of a network. Users keep insertion order;
// each friendship appears once.
type Snapshot struct {
	Users       []string     `json:"users" yaml:"users" msgpack:"users"`
	Friendships []Friendship `json:"friendships" yaml:"friendships" msgpack:"friendships"`
	CentralUser string       `json:"central_user,omitempty" yaml:"central_user,omitempty" msgpack:"central_user,omitempty"`
}

// Importer interface for importing snapshots from various formats
type Importer interface {
	Parse(r io.Reader) (*Snapshot, error)
	Format() string
}

// Exporter interface for exporting snapshots to various formats
type Exporter interface {
	Export(snapshot *Snapshot, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Source is the read side of a network a snapshot is taken from
type Source interface {
	Users() []graph.Person
	Friendships() [][2]graph.Person
}

// Builder is the write side of a network a snapshot is applied to
type Builder interface {
	EnsureUser(username string) (bool, error)
	AddFriend(user1, user2 string) error
}

var registry = map[string]Codec{}

func register(c Codec) {
	registry[c.Format()] = c
}

func init() {
	register(NewJSONCodec())
	register(NewYAMLCodec())
	register(NewMsgpackCodec())
	register(NewLogCodec())
}

// ByFormat looks up the codec registered for name
func ByFormat(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown snapshot format %q (supported: %v)", name, Formats())
	}
	return c, nil
}

// Formats lists the registered format names
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromNetwork captures src as a Snapshot
func FromNetwork(src Source) *Snapshot {
	users := src.Users()
	pairs := src.Friendships()

	snapshot := &Snapshot{
		Users:       graph.Usernames(users),
		Friendships: make([]Friendship, 0, len(pairs)),
	}
	for _, p := range pairs {
		snapshot.Friendships = append(snapshot.Friendships, Friendship{A: p[0].Username(), B: p[1].Username()})
	}
	return snapshot
}

// Apply adds every user and friendship in snapshot to dst. Friendship
// endpoints missing from Users are created. Apply stops at the first error.
func Apply(snapshot *Snapshot, dst Builder) error {
	for _, u := range snapshot.Users {
		if _, err := dst.EnsureUser(u); err != nil {
			return fmt.Errorf("failed to add user %q: %w", u, err)
		}
	}
	for _, f := range snapshot.Friendships {
		if _, err := dst.EnsureUser(f.A); err != nil {
			return fmt.Errorf("failed to add user %q: %w", f.A, err)
		}
		if _, err := dst.EnsureUser(f.B); err != nil {
			return fmt.Errorf("failed to add user %q: %w", f.B, err)
		}
		if err := dst.AddFriend(f.A, f.B); err != nil {
			return fmt.Errorf("failed to add friendship %s-%s: %w", f.A, f.B, err)
		}
	}
	return nil
}
