// Package store mirrors the social network into Neo4j. Users are
// (:Person {username}) nodes and friendships are [:FRIENDS_WITH] relationships.
package store

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"socialnet/internal/codec"
	apperrors "socialnet/pkg/errors"
	"socialnet/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// Connect creates a driver for uri and verifies it can reach the server
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewStoreConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, apperrors.NewStoreConnectionFailed(uri, err)
	}
	return driver, nil
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("store"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// EnsureSchema creates the username uniqueness constraint
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return r.write(ctx, "ensure schema",
		"CREATE CONSTRAINT person_username_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.username IS UNIQUE",
		nil)
}

// UpsertUser creates the Person node for username if it does not exist
func (r *Repository) UpsertUser(ctx context.Context, username string) error {
	query := `
		MERGE (p:Person {username: $username})
		ON CREATE SET p.created_at = datetime($now)
	`
	return r.write(ctx, "upsert user", query, map[string]interface{}{
		"username": username,
		"now":      time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DeleteUser removes the Person node and every friendship touching it
func (r *Repository) DeleteUser(ctx context.Context, username string) error {
	return r.write(ctx, "delete user",
		"MATCH (p:Person {username: $username}) DETACH DELETE p",
		map[string]interface{}{"username": username})
}

// AddFriendship links two existing Person nodes. Linking twice is a no-op.
func (r *Repository) AddFriendship(ctx context.Context, user1, user2 string) error {
	query := `
		MATCH (a:Person {username: $user1})
		MATCH (b:Person {username: $user2})
		MERGE (a)-[f:FRIENDS_WITH]-(b)
		ON CREATE SET f.since = datetime($now)
	`
	return r.write(ctx, "add friendship", query, map[string]interface{}{
		"user1": user1,
		"user2": user2,
		"now":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// RemoveFriendship unlinks two Person nodes in either direction
func (r *Repository) RemoveFriendship(ctx context.Context, user1, user2 string) error {
	query := `
		MATCH (:Person {username: $user1})-[f:FRIENDS_WITH]-(:Person {username: $user2})
		DELETE f
	`
	return r.write(ctx, "remove friendship", query, map[string]interface{}{
		"user1": user1,
		"user2": user2,
	})
}

// Clear deletes every Person node
func (r *Repository) Clear(ctx context.Context) error {
	return r.write(ctx, "clear", "MATCH (p:Person) DETACH DELETE p", nil)
}

// Snapshot reads every user, oldest first, and every friendship once
func (r *Repository) Snapshot(ctx context.Context) (*codec.Snapshot, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	snapshot := &codec.Snapshot{
		Users:       []string{},
		Friendships: []codec.Friendship{},
	}

	result, err := session.Run(ctx, `
		MATCH (p:Person)
		RETURN p.username AS username
		ORDER BY p.created_at, p.username
	`, nil)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("read users", err)
	}
	for result.Next(ctx) {
		if username := recordValue[string](result.Record(), "username"); username != "" {
			snapshot.Users = append(snapshot.Users, username)
		}
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailed("read users", err)
	}

	result, err = session.Run(ctx, `
		MATCH (a:Person)-[f:FRIENDS_WITH]->(b:Person)
		RETURN a.username AS a, b.username AS b
		ORDER BY f.since
	`, nil)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("read friendships", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		snapshot.Friendships = append(snapshot.Friendships, codec.Friendship{
			A: recordValue[string](record, "a"),
			B: recordValue[string](record, "b"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailed("read friendships", err)
	}

	return snapshot, nil
}

// LoadInto rebuilds the stored network inside dst
func (r *Repository) LoadInto(ctx context.Context, dst codec.Builder) (*codec.Snapshot, error) {
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := codec.Apply(snapshot, dst); err != nil {
		return nil, err
	}

	r.logger.Info("Loaded network from Neo4j",
		zap.Int("users", len(snapshot.Users)),
		zap.Int("friendships", len(snapshot.Friendships)))
	return snapshot, nil
}

// Replace swaps the stored network for snapshot in a single transaction
func (r *Repository) Replace(ctx context.Context, snapshot *codec.Snapshot) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	now := time.Now().UTC()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (p:Person) DETACH DELETE p", nil); err != nil {
			return nil, err
		}
		for i, u := range snapshot.Users {
			_, err := tx.Run(ctx,
				"CREATE (:Person {username: $username, created_at: datetime($at)})",
				map[string]interface{}{
					"username": u,
					"at":       now.Add(time.Duration(i) * time.Microsecond).Format(time.RFC3339Nano),
				})
			if err != nil {
				return nil, err
			}
		}
		for i, f := range snapshot.Friendships {
			_, err := tx.Run(ctx, `
				MATCH (a:Person {username: $a})
				MATCH (b:Person {username: $b})
				CREATE (a)-[:FRIENDS_WITH {since: datetime($at)}]->(b)
			`, map[string]interface{}{
				"a":  f.A,
				"b":  f.B,
				"at": now.Add(time.Duration(i) * time.Microsecond).Format(time.RFC3339Nano),
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return apperrors.NewStoreQueryFailed("replace network", err)
	}

	r.logger.Info("Replaced network in Neo4j",
		zap.Int("users", len(snapshot.Users)),
		zap.Int("friendships", len(snapshot.Friendships)))
	return nil
}

func (r *Repository) write(ctx context.Context, operation, query string, params map[string]interface{}) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, query, params); err != nil {
		r.logger.Warn("Neo4j write failed", zap.String("operation", operation), zap.Error(err))
		return apperrors.NewStoreQueryFailed(operation, err)
	}
	return nil
}
