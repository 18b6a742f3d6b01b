package network

import (
	"sync"

	"go.uber.org/zap"

	"socialnet/internal/graph"
	apperrors "socialnet/pkg/errors"
	"socialnet/pkg/logger"
)

// SocialNetwork wraps a Graph with username validation, typed errors, and
// higher-level queries. Mutations take the write lock; queries share the read
// lock, so every multi-step graph mutation appears atomic to readers.
type SocialNetwork struct {
	mu     sync.RWMutex
	graph  *graph.Graph
	logger *zap.Logger
}

// Stats summarizes the network
type Stats struct {
	Users       int `json:"users"`
	Friendships int `json:"friendships"`
	Components  int `json:"components"`
	Isolated    int `json:"isolated"`
}

// New creates an empty social network
func New() *SocialNetwork {
	return NewWithLogger(logger.Named("network"))
}

// NewWithLogger creates an empty social network that logs to log
func NewWithLogger(log *zap.Logger) *SocialNetwork {
	if log == nil {
		log = zap.NewNop()
	}
	return &SocialNetwork{
		graph:  graph.New(),
		logger: log,
	}
}

// AddUser adds a user. It fails with ErrInvalidUsername for a blank or
// malformed username and ErrUserAlreadyExists for a duplicate.
func (n *SocialNetwork) AddUser(username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.graph.Node(username); exists {
		return apperrors.NewUserAlreadyExists(username)
	}
	n.graph.AddNode(graph.NewPerson(username))

	n.logger.Debug("User added", zap.String("username", username))
	return nil
}

// EnsureUser adds username if it is missing and reports whether it was created
func (n *SocialNetwork) EnsureUser(username string) (bool, error) {
	if err := ValidateUsername(username); err != nil {
		return false, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	created := n.graph.AddNode(graph.NewPerson(username))
	if created {
		n.logger.Debug("User added", zap.String("username", username))
	}
	return created, nil
}

// RemoveUser removes a user and all of their friendships
func (n *SocialNetwork) RemoveUser(username string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	person, err := n.resolve(username)
	if err != nil {
		return err
	}
	n.graph.RemoveNode(person)

	n.logger.Debug("User removed", zap.String("username", username))
	return nil
}

// AddFriend befriends two existing users. Re-adding an existing friendship is
// a no-op. A user cannot befriend themself.
func (n *SocialNetwork) AddFriend(user1, user2 string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	p1, p2, err := n.resolvePair(user1, user2)
	if err != nil {
		return err
	}
	if err := ValidateFriendship(user1, user2); err != nil {
		return err
	}
	n.graph.AddEdge(p1, p2)

	n.logger.Debug("Friendship added", zap.String("user1", user1), zap.String("user2", user2))
	return nil
}

// RemoveFriend removes the friendship between two existing users. Removing a
// friendship that does not exist is a no-op.
func (n *SocialNetwork) RemoveFriend(user1, user2 string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	p1, p2, err := n.resolvePair(user1, user2)
	if err != nil {
		return err
	}
	n.graph.RemoveEdge(p1, p2)

	n.logger.Debug("Friendship removed", zap.String("user1", user1), zap.String("user2", user2))
	return nil
}

// Clear discards every user and friendship
func (n *SocialNetwork) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.graph = graph.New()
	n.logger.Debug("Network cleared")
}

// Users returns every user in the order they were added
func (n *SocialNetwork) Users() []graph.Person {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.graph.Nodes()
}

// HasUser reports whether username is present
func (n *SocialNetwork) HasUser(username string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	_, ok := n.graph.Node(username)
	return ok
}

// FriendsOf returns a user's friends in the order they were befriended.
// A user without friends yields an empty slice.
func (n *SocialNetwork) FriendsOf(username string) ([]graph.Person, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	person, err := n.resolve(username)
	if err != nil {
		return nil, err
	}
	return n.graph.Neighbors(person)
}

// Degree returns the number of friends a user has
func (n *SocialNetwork) Degree(username string) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	person, err := n.resolve(username)
	if err != nil {
		return 0, err
	}
	return n.graph.Degree(person), nil
}

// Size returns the number of friendships
func (n *SocialNetwork) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.graph.Size()
}

// Order returns the number of users
func (n *SocialNetwork) Order() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.graph.Order()
}

// resolve must be called with the lock held
func (n *SocialNetwork) resolve(username string) (graph.Person, error) {
	person, ok := n.graph.Node(username)
	if !ok {
		return graph.Person{}, apperrors.NewUserNotFound(username)
	}
	return person, nil
}

// resolvePair must be called with the lock held
func (n *SocialNetwork) resolvePair(user1, user2 string) (graph.Person, graph.Person, error) {
	p1, err := n.resolve(user1)
	if err != nil {
		return graph.Person{}, graph.Person{}, err
	}
	p2, err := n.resolve(user2)
	if err != nil {
		return graph.Person{}, graph.Person{}, err
	}
	return p1, p2, nil
}
