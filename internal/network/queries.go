package network

import (
	"socialnet/internal/graph"
)

// MutualFriends returns the friends user1 and user2 have in common, in
// user1's friend order. No overlap yields an empty slice, not an error.
func (n *SocialNetwork) MutualFriends(user1, user2 string) ([]graph.Person, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	p1, p2, err := n.resolvePair(user1, user2)
	if err != nil {
		return nil, err
	}

	friends1, err := n.graph.Neighbors(p1)
	if err != nil {
		return nil, err
	}
	friends2, err := n.graph.Neighbors(p2)
	if err != nil {
		return nil, err
	}

	other := make(map[graph.Person]struct{}, len(friends2))
	for _, p := range friends2 {
		other[p] = struct{}{}
	}

	mutual := make([]graph.Person, 0)
	for _, p := range friends1 {
		if _, ok := other[p]; ok {
			mutual = append(mutual, p)
		}
	}
	return mutual, nil
}

// ShortestPath returns the shortest chain of friendships from user1 to user2,
// both inclusive. ShortestPath(u, u) is [u]. Users in different components
// yield a nil path and no error.
func (n *SocialNetwork) ShortestPath(user1, user2 string) ([]graph.Person, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	p1, p2, err := n.resolvePair(user1, user2)
	if err != nil {
		return nil, err
	}
	return n.graph.ShortestPath(p1, p2), nil
}

// ConnectedComponents partitions every user into groups connected by some
// chain of friendships. Isolated users form their own component.
func (n *SocialNetwork) ConnectedComponents() [][]graph.Person {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.graph.ConnectedComponents()
}

// ComponentOf returns every user reachable from username, username first
func (n *SocialNetwork) ComponentOf(username string) ([]graph.Person, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	person, err := n.resolve(username)
	if err != nil {
		return nil, err
	}
	return n.graph.Reachable(person), nil
}

// Friendships lists every friendship once, as [a, b] pairs where a was added
// to the network before b. Pairs are ordered by a, then by a's friend order.
func (n *SocialNetwork) Friendships() [][2]graph.Person {
	n.mu.RLock()
	defer n.mu.RUnlock()

	nodes := n.graph.Nodes()
	rank := make(map[graph.Person]int, len(nodes))
	for i, p := range nodes {
		rank[p] = i
	}

	pairs := make([][2]graph.Person, 0, n.graph.Size())
	for _, p := range nodes {
		friends, _ := n.graph.Neighbors(p)
		for _, f := range friends {
			if rank[p] < rank[f] {
				pairs = append(pairs, [2]graph.Person{p, f})
			}
		}
	}
	return pairs
}

// Stats summarizes the network under a single read lock
func (n *SocialNetwork) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	isolated := 0
	for _, p := range n.graph.Nodes() {
		if n.graph.Degree(p) == 0 {
			isolated++
		}
	}

	return Stats{
		Users:       n.graph.Order(),
		Friendships: n.graph.Size(),
		Components:  len(n.graph.ConnectedComponents()),
		Isolated:    isolated,
	}
}
