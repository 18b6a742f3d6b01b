package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"socialnet/internal/codec"
	"socialnet/internal/commandlog"
	"socialnet/internal/graph"
	"socialnet/internal/network"
	"socialnet/pkg/logger"
)

type options struct {
	maxLineBytes int
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "netctl",
		Short: "Inspect and convert social network command logs",
		Long: `netctl replays a command log and answers questions about the network it builds.

A command log holds one command per line:
  a <user>            add a user
  a <user> <user>     add a friendship
  r <user>            remove a user
  r <user> <user>     remove a friendship
A blank line ends the log.

Examples:
  netctl stats network.txt
  netctl path network.txt sam dana
  netctl convert network.txt --format yaml --out network.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				return logger.Init("development", "")
			}
			return nil
		},
	}
	root.PersistentFlags().IntVar(&opts.maxLineBytes, "max-line-bytes", commandlog.DefaultMaxLineBytes, "longest accepted log line")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every applied command")

	root.AddCommand(
		newStatsCmd(opts),
		newFriendsCmd(opts),
		newPathCmd(opts),
		newMutualCmd(opts),
		newComponentsCmd(opts),
		newComponentCmd(opts),
		newConvertCmd(opts),
	)
	return root
}

// load replays path into a fresh network
func (o *options) load(path string) (*network.SocialNetwork, *commandlog.ReplayResult, error) {
	n := network.New()
	res, err := commandlog.LoadFile(path, n, commandlog.WithMaxLineBytes(o.maxLineBytes))
	if err != nil {
		return nil, nil, err
	}
	return n, res, nil
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <log>",
		Short: "Show users, friendships, and components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, res, err := opts.load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stats := n.Stats()
			printTitle(out, args[0])
			printField(out, "Users", stats.Users)
			printField(out, "Friendships", stats.Friendships)
			printField(out, "Components", stats.Components)
			printField(out, "Isolated", stats.Isolated)
			printField(out, "Lines", fmt.Sprintf("%d (%d applied, %d skipped)", res.Lines, res.Applied, res.Skipped))
			if res.CentralUser != "" {
				printField(out, "Central user", res.CentralUser)
			}
			return nil
		},
	}
}

func newFriendsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "friends <log> <user>",
		Short: "List a user's friends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			friends, err := n.FriendsOf(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTitle(out, "Friends of "+args[1])
			printList(out, graph.Usernames(friends), "\n", "no friends")
			degree, err := n.Degree(args[1])
			if err != nil {
				return err
			}
			printField(out, "Degree", degree)
			return nil
		},
	}
}

func newPathCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "path <log> <from> <to>",
		Short: "Show the shortest friendship chain between two users",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			path, err := n.ShortestPath(args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTitle(out, fmt.Sprintf("Path from %s to %s", args[1], args[2]))
			printList(out, graph.Usernames(path), " -> ", "not connected")
			if len(path) > 0 {
				printField(out, "Hops", len(path)-1)
			}
			return nil
		},
	}
}

func newMutualCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mutual <log> <user1> <user2>",
		Short: "List friends two users share",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			mutual, err := n.MutualFriends(args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTitle(out, fmt.Sprintf("Mutual friends of %s and %s", args[1], args[2]))
			printList(out, graph.Usernames(mutual), "\n", "none")
			return nil
		},
	}
}

func newComponentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "components <log>",
		Short: "List connected groups of users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := opts.load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			components := n.ConnectedComponents()
			printTitle(out, fmt.Sprintf("%d components", len(components)))
			for i, c := range components {
				fmt.Fprintf(out, "%s ", styles.Muted.Render(fmt.Sprintf("%d.", i+1)))
				printList(out, graph.Usernames(c), ", ", "")
			}
			return nil
		},
	}
}

func newComponentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "component <log> <user>",
		Short: "List everyone connected to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			component, err := n.ComponentOf(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTitle(out, "Connected to "+args[1])
			printList(out, graph.Usernames(component), ", ", "")
			printField(out, "Size", len(component))
			return nil
		},
	}
}

func newConvertCmd(opts *options) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "convert <log>",
		Short: "Rewrite a log as a snapshot",
		Long: `Replay a command log and write the resulting network.

Formats:
  json     - {"users": [...], "friendships": [{"a": ..., "b": ...}]}
  yaml     - the same structure as YAML
  msgpack  - the same structure as MessagePack
  log      - a compacted command log: every user, then every friendship`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cdc, err := codec.ByFormat(format)
			if err != nil {
				return err
			}
			n, res, err := opts.load(args[0])
			if err != nil {
				return err
			}

			snapshot := codec.FromNetwork(n)
			if res.CentralUser != "" && n.HasUser(res.CentralUser) {
				snapshot.CentralUser = res.CentralUser
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			return cdc.Export(snapshot, w)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", fmt.Sprintf("output format %v", codec.Formats()))
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}
