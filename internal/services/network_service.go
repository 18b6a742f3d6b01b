// Package services pairs the social network engine with its command log,
// the optional Neo4j mirror, and metrics.
package services

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"socialnet/internal/codec"
	"socialnet/internal/commandlog"
	"socialnet/internal/graph"
	"socialnet/internal/metrics"
	"socialnet/internal/network"
	apperrors "socialnet/pkg/errors"
	"socialnet/pkg/logger"
)

// Mirror receives every successful mutation. store.Repository implements it.
type Mirror interface {
	UpsertUser(ctx context.Context, username string) error
	DeleteUser(ctx context.Context, username string) error
	AddFriendship(ctx context.Context, user1, user2 string) error
	RemoveFriendship(ctx context.Context, user1, user2 string) error
	Replace(ctx context.Context, snapshot *codec.Snapshot) error
}

// NetworkService is the single entry point the HTTP API, CLI, and watcher
// use to read and change the network
type NetworkService struct {
	mu      sync.RWMutex
	network *network.SocialNetwork
	log     *commandlog.Log
	central string

	mirror       Mirror
	metrics      *metrics.Metrics
	logger       *zap.Logger
	maxLineBytes int

	// exports records when the service last wrote each path so the log
	// watcher can ignore its own writes
	exportsMu sync.Mutex
	exports   map[string]time.Time
}

// Option configures a NetworkService
type Option func(*NetworkService)

// WithMirror mirrors every mutation into m
func WithMirror(m Mirror) Option {
	return func(s *NetworkService) { s.mirror = m }
}

// WithMetrics records mutations and replays in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *NetworkService) { s.metrics = m }
}

// WithLogger overrides the component logger
func WithLogger(log *zap.Logger) Option {
	return func(s *NetworkService) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithMaxLineBytes bounds command-log lines read by LoadFromLog and ReloadFromLog
func WithMaxLineBytes(n int) Option {
	return func(s *NetworkService) { s.maxLineBytes = n }
}

// NewNetworkService creates a service around an empty network
func NewNetworkService(opts ...Option) *NetworkService {
	s := &NetworkService{
		log:          commandlog.NewLog(),
		logger:       logger.Named("service"),
		maxLineBytes: commandlog.DefaultMaxLineBytes,
		exports:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.network = network.NewWithLogger(s.logger.Named("network"))
	return s
}

// AddUser adds username and queues the matching command
func (s *NetworkService) AddUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.network.AddUser(username)
	s.metrics.RecordMutation("add_user", err)
	if err != nil {
		return err
	}

	s.commit(commandlog.AddUser(username))
	s.mirrorCall("add_user", func(m Mirror) error { return m.UpsertUser(ctx, username) })
	return nil
}

// RemoveUser removes username with all of their friendships
func (s *NetworkService) RemoveUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.network.RemoveUser(username)
	s.metrics.RecordMutation("remove_user", err)
	if err != nil {
		return err
	}

	if s.central == username {
		s.central = ""
	}
	s.commit(commandlog.RemoveUser(username))
	s.mirrorCall("remove_user", func(m Mirror) error { return m.DeleteUser(ctx, username) })
	return nil
}

// AddFriend befriends two existing users
func (s *NetworkService) AddFriend(ctx context.Context, user1, user2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.network.AddFriend(user1, user2)
	s.metrics.RecordMutation("add_friend", err)
	if err != nil {
		return err
	}

	s.commit(commandlog.AddFriend(user1, user2))
	s.mirrorCall("add_friend", func(m Mirror) error { return m.AddFriendship(ctx, user1, user2) })
	return nil
}

// RemoveFriend removes the friendship between two existing users
func (s *NetworkService) RemoveFriend(ctx context.Context, user1, user2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.network.RemoveFriend(user1, user2)
	s.metrics.RecordMutation("remove_friend", err)
	if err != nil {
		return err
	}

	s.commit(commandlog.RemoveFriend(user1, user2))
	s.mirrorCall("remove_friend", func(m Mirror) error { return m.RemoveFriendship(ctx, user1, user2) })
	return nil
}

// Users lists every username in insertion order
func (s *NetworkService) Users() []string {
	return graph.Usernames(s.current().Users())
}

// HasUser reports whether username exists
func (s *NetworkService) HasUser(username string) bool {
	return s.current().HasUser(username)
}

// FriendsOf lists username's friends
func (s *NetworkService) FriendsOf(username string) ([]string, error) {
	friends, err := s.current().FriendsOf(username)
	if err != nil {
		return nil, err
	}
	return graph.Usernames(friends), nil
}

// Degree returns how many friends username has
func (s *NetworkService) Degree(username string) (int, error) {
	return s.current().Degree(username)
}

// ComponentOf lists everyone connected to username by some chain of
// friendships, username first
func (s *NetworkService) ComponentOf(username string) ([]string, error) {
	component, err := s.current().ComponentOf(username)
	if err != nil {
		return nil, err
	}
	return graph.Usernames(component), nil
}

// MutualFriends lists the friends user1 and user2 share
func (s *NetworkService) MutualFriends(user1, user2 string) ([]string, error) {
	mutual, err := s.current().MutualFriends(user1, user2)
	if err != nil {
		return nil, err
	}
	return graph.Usernames(mutual), nil
}

// ShortestPath returns the usernames on a shortest friendship chain, or an
// empty list when the users are not connected
func (s *NetworkService) ShortestPath(from, to string) ([]string, error) {
	path, err := s.current().ShortestPath(from, to)
	if err != nil {
		return nil, err
	}
	return graph.Usernames(path), nil
}

// ConnectedComponents groups usernames by connected component
func (s *NetworkService) ConnectedComponents() [][]string {
	components := s.current().ConnectedComponents()
	out := make([][]string, len(components))
	for i, c := range components {
		out[i] = graph.Usernames(c)
	}
	return out
}

// Stats summarizes the network
func (s *NetworkService) Stats() network.Stats {
	return s.current().Stats()
}

// SetCentralUser marks username as the user the network is viewed from.
// The central user is service state and is not queued for export.
func (s *NetworkService) SetCentralUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.network.HasUser(username) {
		return apperrors.NewUserNotFound(username)
	}
	s.central = username
	return nil
}

// CentralUser returns the central user, or "" when none is set
func (s *NetworkService) CentralUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.central
}

// LogLines returns the queued commands in log form
func (s *NetworkService) LogLines() []string {
	return s.log.Lines()
}

// LoadFromLog replays path into the current network. Applied commands are
// queued; on failure the applied prefix stays and the error names the line.
func (s *NetworkService) LoadFromLog(ctx context.Context, path string) (*commandlog.ReplayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.replay(path, s.network)
	if res != nil {
		s.log.AppendAll(res.Commands)
		if res.CentralUser != "" && s.network.HasUser(res.CentralUser) {
			s.central = res.CentralUser
		}
		s.publishSize()
		s.mirrorCall("replace", func(m Mirror) error { return m.Replace(ctx, s.snapshotLocked()) })
	}

	if err != nil {
		s.logger.Warn("Command log load stopped early", zap.String("path", path), zap.Error(err))
		return res, err
	}

	s.logger.Info("Command log loaded",
		zap.String("path", path),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ReloadFromLog replays path into a fresh network and swaps it in only when
// the whole log applies. The queue is replaced by the replayed commands.
func (s *NetworkService) ReloadFromLog(ctx context.Context, path string) (*commandlog.ReplayResult, error) {
	fresh := network.NewWithLogger(s.logger.Named("network"))
	res, err := s.replay(path, fresh)
	if err != nil {
		s.logger.Warn("Command log reload rejected", zap.String("path", path), zap.Error(err))
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.network = fresh
	s.log.Reset()
	s.log.AppendAll(res.Commands)
	s.central = ""
	if res.CentralUser != "" && fresh.HasUser(res.CentralUser) {
		s.central = res.CentralUser
	}
	s.publishSize()
	s.mirrorCall("replace", func(m Mirror) error { return m.Replace(ctx, s.snapshotLocked()) })

	s.logger.Info("Command log reloaded",
		zap.String("path", path),
		zap.Int("users", fresh.Order()),
		zap.Int("friendships", fresh.Size()))
	return res, nil
}

// Restore replaces the network with snapshot and queues the compacted
// commands that rebuild it. The mirror is not written.
func (s *NetworkService) Restore(snapshot *codec.Snapshot) error {
	fresh := network.NewWithLogger(s.logger.Named("network"))
	if err := codec.Apply(snapshot, fresh); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.network = fresh
	s.log.Reset()
	for _, u := range snapshot.Users {
		s.log.Append(commandlog.AddUser(u))
	}
	for _, f := range snapshot.Friendships {
		s.log.Append(commandlog.AddFriend(f.A, f.B))
	}
	s.central = ""
	if snapshot.CentralUser != "" && fresh.HasUser(snapshot.CentralUser) {
		s.central = snapshot.CentralUser
	}
	s.publishSize()

	s.logger.Info("Network restored from snapshot",
		zap.Int("users", fresh.Order()),
		zap.Int("friendships", fresh.Size()))
	return nil
}

// ExportLog writes the queued commands to path. ExportDrain empties the
// queue once the file is written.
func (s *NetworkService) ExportLog(path string, mode commandlog.ExportMode) (int, error) {
	s.markExport(path)
	n, err := s.log.ExportFile(path, mode)
	if err != nil {
		s.logger.Error("Command log export failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	s.markExport(path)

	s.logger.Info("Command log exported",
		zap.String("path", path),
		zap.String("mode", mode.String()),
		zap.Int("commands", n))
	return n, nil
}

// Clear discards every user, friendship, and queued command
func (s *NetworkService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.network.Clear()
	s.log.Reset()
	s.central = ""
	s.publishSize()
	s.mirrorCall("replace", func(m Mirror) error { return m.Replace(ctx, s.snapshotLocked()) })

	s.logger.Info("Network cleared")
}

// Snapshot captures the network and central user
func (s *NetworkService) Snapshot() *codec.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// exportedWithin reports whether the service wrote path in the last window
func (s *NetworkService) exportedWithin(path string, window time.Duration) bool {
	s.exportsMu.Lock()
	defer s.exportsMu.Unlock()

	at, ok := s.exports[cleanPath(path)]
	return ok && time.Since(at) < window
}

func (s *NetworkService) markExport(path string) {
	s.exportsMu.Lock()
	defer s.exportsMu.Unlock()

	s.exports[cleanPath(path)] = time.Now()
}

func (s *NetworkService) current() *network.SocialNetwork {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.network
}

func (s *NetworkService) replay(path string, target commandlog.Target) (*commandlog.ReplayResult, error) {
	start := time.Now()
	res, err := commandlog.LoadFile(path, target, commandlog.WithMaxLineBytes(s.maxLineBytes))
	if res != nil {
		s.metrics.RecordReplay(time.Since(start), res.Applied, res.Skipped, err != nil)
	}
	return res, err
}

// snapshotLocked must be called with s.mu held
func (s *NetworkService) snapshotLocked() *codec.Snapshot {
	snapshot := codec.FromNetwork(s.network)
	snapshot.CentralUser = s.central
	return snapshot
}

// commit must be called with s.mu held
func (s *NetworkService) commit(cmd commandlog.Command) {
	s.log.Append(cmd)
	s.publishSize()
}

func (s *NetworkService) publishSize() {
	s.metrics.SetSize(s.network.Order(), s.network.Size())
}

// mirrorCall runs fn against the mirror, logging rather than returning failures
func (s *NetworkService) mirrorCall(op string, fn func(Mirror) error) {
	if s.mirror == nil {
		return
	}
	if err := fn(s.mirror); err != nil {
		s.logger.Warn("Mirror write failed",
			zap.String("op", op),
			zap.Bool("retryable", apperrors.IsRetryable(err)),
			zap.Error(err))
	}
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
