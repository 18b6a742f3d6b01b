package graph

import "fmt"

// Graph is an undirected, unweighted adjacency-list store of people and
// friendships. Neighbor lists keep insertion order, and so does the node list,
// which makes every listing and traversal deterministic.
//
// Graph is not safe for concurrent use; the owner serializes access.
type Graph struct {
	adjacency map[Person][]Person
	nodes     []Person
	index     map[string]Person
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		adjacency: make(map[Person][]Person),
		nodes:     make([]Person, 0),
		index:     make(map[string]Person),
	}
}

// AddNode inserts person. It returns false if the person is already present.
func (g *Graph) AddNode(person Person) bool {
	if _, exists := g.adjacency[person]; exists {
		return false
	}

	g.adjacency[person] = make([]Person, 0)
	g.nodes = append(g.nodes, person)
	g.index[person.username] = person
	return true
}

// RemoveNode deletes person together with every incident edge.
// It returns false if the person is absent.
func (g *Graph) RemoveNode(person Person) bool {
	if _, exists := g.adjacency[person]; !exists {
		return false
	}

	// O(order) scrub; graphs in this domain are small
	for other, neighbors := range g.adjacency {
		g.adjacency[other] = without(neighbors, person)
	}

	delete(g.adjacency, person)
	delete(g.index, person.username)
	g.nodes = without(g.nodes, person)
	return true
}

// AddEdge befriends p1 and p2 in both directions. It returns true when both
// people exist, whether or not the edge was new.
func (g *Graph) AddEdge(p1, p2 Person) bool {
	if !g.HasNode(p1) || !g.HasNode(p2) {
		return false
	}

	if !contains(g.adjacency[p1], p2) {
		g.adjacency[p1] = append(g.adjacency[p1], p2)
	}
	if !contains(g.adjacency[p2], p1) {
		g.adjacency[p2] = append(g.adjacency[p2], p1)
	}
	return true
}

// RemoveEdge removes the friendship from both sides. It returns true when both
// people exist, whether or not the edge was present.
func (g *Graph) RemoveEdge(p1, p2 Person) bool {
	if !g.HasNode(p1) || !g.HasNode(p2) {
		return false
	}

	g.adjacency[p1] = without(g.adjacency[p1], p2)
	g.adjacency[p2] = without(g.adjacency[p2], p1)
	return true
}

// HasNode reports whether person is in the graph
func (g *Graph) HasNode(person Person) bool {
	_, exists := g.adjacency[person]
	return exists
}

// HasEdge reports whether p1 and p2 are friends
func (g *Graph) HasEdge(p1, p2 Person) bool {
	return contains(g.adjacency[p1], p2)
}

// Neighbors returns a copy of person's friends in insertion order. A person
// with no friends yields an empty, non-nil slice.
func (g *Graph) Neighbors(person Person) ([]Person, error) {
	neighbors, exists := g.adjacency[person]
	if !exists {
		return nil, ErrPersonNotFound{Username: person.username}
	}

	out := make([]Person, len(neighbors))
	copy(out, neighbors)
	return out, nil
}

// neighbors returns the internal neighbor list without copying.
// Callers must not modify or retain it.
func (g *Graph) neighbors(person Person) []Person {
	return g.adjacency[person]
}

// Node looks up a person by username
func (g *Graph) Node(username string) (Person, bool) {
	p, ok := g.index[username]
	return p, ok
}

// Nodes returns every person in insertion order
func (g *Graph) Nodes() []Person {
	out := make([]Person, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Degree returns the number of friends of person, 0 if absent
func (g *Graph) Degree(person Person) int {
	return len(g.adjacency[person])
}

// Size returns the number of friendships. Each undirected edge is stored twice.
func (g *Graph) Size() int {
	total := 0
	for _, neighbors := range g.adjacency {
		total += len(neighbors)
	}
	return total / 2
}

// Order returns the number of people
func (g *Graph) Order() int {
	return len(g.adjacency)
}

// Errors

// ErrPersonNotFound is returned by Neighbors for an absent person
type ErrPersonNotFound struct {
	Username string
}

func (e ErrPersonNotFound) Error() string {
	return fmt.Sprintf("person not found: %s", e.Username)
}

func contains(people []Person, target Person) bool {
	for _, p := range people {
		if p == target {
			return true
		}
	}
	return false
}

func without(people []Person, target Person) []Person {
	for i, p := range people {
		if p == target {
			out := make([]Person, 0, len(people)-1)
			out = append(out, people[:i]...)
			return append(out, people[i+1:]...)
		}
	}
	return people
}
