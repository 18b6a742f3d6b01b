package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialnet/internal/codec"
	"socialnet/internal/commandlog"
	"socialnet/internal/metrics"
	apperrors "socialnet/pkg/errors"
)

// mockMirror records mirror calls
type mockMirror struct {
	mu       sync.Mutex
	calls    []string
	replaced *codec.Snapshot
	err      error
}

func (m *mockMirror) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *mockMirror) UpsertUser(_ context.Context, username string) error {
	return m.record("upsert " + username)
}

func (m *mockMirror) DeleteUser(_ context.Context, username string) error {
	return m.record("delete " + username)
}

func (m *mockMirror) AddFriendship(_ context.Context, user1, user2 string) error {
	return m.record("befriend " + user1 + " " + user2)
}

func (m *mockMirror) RemoveFriendship(_ context.Context, user1, user2 string) error {
	return m.record("unfriend " + user1 + " " + user2)
}

func (m *mockMirror) Replace(_ context.Context, snapshot *codec.Snapshot) error {
	m.mu.Lock()
	m.replaced = snapshot
	m.mu.Unlock()
	return m.record("replace")
}

func (m *mockMirror) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func writeLog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNetworkService_MutationsQueueCommands(t *testing.T) {
	ctx := context.Background()
	mirror := &mockMirror{}
	svc := NewNetworkService(WithMirror(mirror), WithMetrics(metrics.New(prometheus.NewRegistry())))

	require.NoError(t, svc.AddUser(ctx, "sam"))
	require.NoError(t, svc.AddUser(ctx, "chris"))
	require.NoError(t, svc.AddFriend(ctx, "sam", "chris"))
	require.NoError(t, svc.RemoveFriend(ctx, "sam", "chris"))
	require.NoError(t, svc.RemoveUser(ctx, "chris"))

	assert.Equal(t, []string{"a sam", "a chris", "a sam chris", "r sam chris", "r chris"}, svc.LogLines())
	assert.Equal(t, []string{
		"upsert sam", "upsert chris", "befriend sam chris", "unfriend sam chris", "delete chris",
	}, mirror.Calls())
	assert.Equal(t, []string{"sam"}, svc.Users())
}

func TestNetworkService_FailedMutationsAreNotQueued(t *testing.T) {
	ctx := context.Background()
	mirror := &mockMirror{}
	svc := NewNetworkService(WithMirror(mirror))

	require.NoError(t, svc.AddUser(ctx, "sam"))

	err := svc.AddUser(ctx, "sam")
	assert.True(t, apperrors.IsUserAlreadyExists(err))

	err = svc.AddUser(ctx, "bad name")
	assert.True(t, apperrors.IsInvalidUsername(err))

	err = svc.AddFriend(ctx, "sam", "ghost")
	assert.True(t, apperrors.IsUserNotFound(err))

	assert.Equal(t, []string{"a sam"}, svc.LogLines())
	assert.Equal(t, []string{"upsert sam"}, mirror.Calls())
}

func TestNetworkService_MirrorFailureIsNotReturned(t *testing.T) {
	svc := NewNetworkService(WithMirror(&mockMirror{err: apperrors.NewStoreQueryFailed("upsert user", errors.New("down"))}))

	require.NoError(t, svc.AddUser(context.Background(), "sam"))
	assert.True(t, svc.HasUser("sam"))
}

func TestNetworkService_Queries(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	for _, u := range []string{"a", "b", "c", "d", "loner"} {
		require.NoError(t, svc.AddUser(ctx, u))
	}
	require.NoError(t, svc.AddFriend(ctx, "a", "b"))
	require.NoError(t, svc.AddFriend(ctx, "b", "c"))
	require.NoError(t, svc.AddFriend(ctx, "a", "d"))
	require.NoError(t, svc.AddFriend(ctx, "c", "d"))

	friends, err := svc.FriendsOf("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, friends)

	mutual, err := svc.MutualFriends("a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, mutual)

	path, err := svc.ShortestPath("a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, path)

	path, err = svc.ShortestPath("a", "loner")
	require.NoError(t, err)
	assert.Empty(t, path)

	assert.Equal(t, [][]string{{"a", "b", "d", "c"}, {"loner"}}, svc.ConnectedComponents())

	component, err := svc.ComponentOf("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "d", "a"}, component)

	degree, err := svc.Degree("a")
	require.NoError(t, err)
	assert.Equal(t, 2, degree)

	_, err = svc.Degree("ghost")
	assert.True(t, apperrors.IsUserNotFound(err))

	stats := svc.Stats()
	assert.Equal(t, 5, stats.Users)
	assert.Equal(t, 4, stats.Friendships)
	assert.Equal(t, 2, stats.Components)
	assert.Equal(t, 1, stats.Isolated)
}

func TestNetworkService_CentralUser(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	require.NoError(t, svc.AddUser(ctx, "sam"))

	err := svc.SetCentralUser("ghost")
	assert.True(t, apperrors.IsUserNotFound(err))
	assert.Empty(t, svc.CentralUser())

	require.NoError(t, svc.SetCentralUser("sam"))
	assert.Equal(t, "sam", svc.CentralUser())
	assert.Equal(t, "sam", svc.Snapshot().CentralUser)

	require.NoError(t, svc.RemoveUser(ctx, "sam"))
	assert.Empty(t, svc.CentralUser())
}

func TestNetworkService_LoadFromLog(t *testing.T) {
	ctx := context.Background()
	mirror := &mockMirror{}
	svc := NewNetworkService(WithMirror(mirror))
	require.NoError(t, svc.AddUser(ctx, "zed"))

	path := writeLog(t, "a dana\na erin\na dana erin\nr dana erin\ns erin\n")
	res, err := svc.LoadFromLog(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Applied)
	assert.Equal(t, []string{"zed", "dana", "erin"}, svc.Users())
	assert.Equal(t, 0, svc.Stats().Friendships)
	assert.Equal(t, "erin", svc.CentralUser())
	assert.Equal(t, []string{"a zed", "a dana", "a erin", "a dana erin", "r dana erin"}, svc.LogLines())

	require.NotNil(t, mirror.replaced)
	assert.Equal(t, []string{"zed", "dana", "erin"}, mirror.replaced.Users)
}

func TestNetworkService_LoadFromLogKeepsPrefix(t *testing.T) {
	svc := NewNetworkService()

	path := writeLog(t, "a dana\na erin!\na fay\n")
	_, err := svc.LoadFromLog(context.Background(), path)
	require.Error(t, err)

	var failed *apperrors.ErrReplayFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 2, failed.Line)
	assert.Equal(t, []string{"dana"}, svc.Users())
	assert.Equal(t, []string{"a dana"}, svc.LogLines())
}

func TestNetworkService_LoadFromMissingFile(t *testing.T) {
	svc := NewNetworkService()
	_, err := svc.LoadFromLog(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestNetworkService_ReloadFromLog(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	require.NoError(t, svc.AddUser(ctx, "old"))

	bad := writeLog(t, "a dana\nr\n")
	_, err := svc.ReloadFromLog(ctx, bad)
	require.Error(t, err)
	assert.Equal(t, []string{"old"}, svc.Users(), "a failed reload keeps the current network")

	good := writeLog(t, "a dana erin\n")
	_, err = svc.ReloadFromLog(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, []string{"dana", "erin"}, svc.Users())
	assert.Equal(t, []string{"a dana erin"}, svc.LogLines())
}

func TestNetworkService_ExportLog(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	require.NoError(t, svc.AddUser(ctx, "sam"))
	require.NoError(t, svc.AddUser(ctx, "chris"))
	require.NoError(t, svc.AddFriend(ctx, "sam", "chris"))

	path := filepath.Join(t.TempDir(), "export.txt")

	n, err := svc.ExportLog(path, commandlog.ExportSnapshot)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, svc.LogLines(), 3)
	assert.True(t, svc.exportedWithin(path, DefaultDebounce))

	n, err = svc.ExportLog(path, commandlog.ExportDrain)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, svc.LogLines())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a sam\na chris\na sam chris\n", string(data))

	// Exported logs replay to the same network
	replayed := NewNetworkService()
	_, err = replayed.LoadFromLog(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, svc.Snapshot(), replayed.Snapshot())
}

func TestNetworkService_ExportHoldsOnlyAddAndRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	require.NoError(t, svc.AddUser(ctx, "sam"))
	require.NoError(t, svc.AddUser(ctx, "chris"))
	require.NoError(t, svc.AddFriend(ctx, "sam", "chris"))
	require.NoError(t, svc.SetCentralUser("sam"))
	require.NoError(t, svc.RemoveFriend(ctx, "sam", "chris"))

	loaded := writeLog(t, "a dana\ns dana\n")
	_, err := svc.LoadFromLog(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, "dana", svc.CentralUser())

	path := filepath.Join(t.TempDir(), "export.txt")
	_, err = svc.ExportLog(path, commandlog.ExportSnapshot)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	for _, line := range lines {
		cmd, err := commandlog.Parse(line)
		require.NoError(t, err)
		assert.Contains(t, []commandlog.Op{commandlog.OpAdd, commandlog.OpRemove}, cmd.Op, "line %q", line)
	}
}

func TestNetworkService_LoadFromLogSelfFriendship(t *testing.T) {
	svc := NewNetworkService()

	path := writeLog(t, "a dana\na sam sam\n")
	_, err := svc.LoadFromLog(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidUsername(err))

	assert.Equal(t, []string{"dana"}, svc.Users())
	assert.Equal(t, []string{"a dana"}, svc.LogLines())
}

func TestNetworkService_Restore(t *testing.T) {
	svc := NewNetworkService()
	snapshot := &codec.Snapshot{
		Users:       []string{"sam", "chris"},
		Friendships: []codec.Friendship{{A: "sam", B: "chris"}},
		CentralUser: "chris",
	}

	require.NoError(t, svc.Restore(snapshot))
	assert.Equal(t, snapshot, svc.Snapshot())
	assert.Equal(t, []string{"a sam", "a chris", "a sam chris"}, svc.LogLines())

	err := svc.Restore(&codec.Snapshot{Users: []string{"no good"}})
	require.Error(t, err)
	assert.Equal(t, []string{"sam", "chris"}, svc.Users())
}

func TestNetworkService_Clear(t *testing.T) {
	ctx := context.Background()
	mirror := &mockMirror{}
	svc := NewNetworkService(WithMirror(mirror))
	require.NoError(t, svc.AddUser(ctx, "sam"))
	require.NoError(t, svc.SetCentralUser("sam"))

	svc.Clear(ctx)

	assert.Empty(t, svc.Users())
	assert.Empty(t, svc.LogLines())
	assert.Empty(t, svc.CentralUser())
	require.NotNil(t, mirror.replaced)
	assert.Empty(t, mirror.replaced.Users)
}

func TestNetworkService_ConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	svc := NewNetworkService()
	require.NoError(t, svc.AddUser(ctx, "hub"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := "user_" + strings.Repeat("x", i+1)
			if err := svc.AddUser(ctx, name); err == nil {
				_ = svc.AddFriend(ctx, "hub", name)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = svc.Stats()
			_, _ = svc.FriendsOf("hub")
		}()
	}
	wg.Wait()

	friends, err := svc.FriendsOf("hub")
	require.NoError(t, err)
	assert.Len(t, friends, 20)
	assert.Len(t, svc.LogLines(), 41)
}
