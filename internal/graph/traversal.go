package graph

// ShortestPath returns the shortest chain of friendships from src to dst,
// both inclusive, using breadth-first search. Neighbors are explored in
// insertion order and the search stops at the first discovery of dst, so
// among equal-length paths the result is deterministic.
//
// It returns nil when either person is absent or dst is unreachable.
func (g *Graph) ShortestPath(src, dst Person) []Person {
	if !g.HasNode(src) || !g.HasNode(dst) {
		return nil
	}
	if src == dst {
		return []Person{src}
	}

	parent := map[Person]Person{src: src}
	queue := []Person{src}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.neighbors(current) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == dst {
				return reconstructPath(src, dst, parent)
			}
			queue = append(queue, next)
		}
	}

	return nil
}

// ConnectedComponents partitions every person into maximal connected groups.
// Components are ordered by their first member's insertion, and members are
// listed in BFS discovery order. Isolated people form one-element components.
func (g *Graph) ConnectedComponents() [][]Person {
	visited := make(map[Person]bool, len(g.nodes))
	components := make([][]Person, 0)

	for _, start := range g.nodes {
		if visited[start] {
			continue
		}

		visited[start] = true
		component := []Person{start}
		// component doubles as the BFS queue
		for i := 0; i < len(component); i++ {
			for _, next := range g.neighbors(component[i]) {
				if !visited[next] {
					visited[next] = true
					component = append(component, next)
				}
			}
		}
		components = append(components, component)
	}

	return components
}

// Reachable returns everyone in person's component, person first.
// It returns nil for an absent person.
func (g *Graph) Reachable(person Person) []Person {
	if !g.HasNode(person) {
		return nil
	}

	visited := map[Person]bool{person: true}
	out := []Person{person}
	for i := 0; i < len(out); i++ {
		for _, next := range g.neighbors(out[i]) {
			if !visited[next] {
				visited[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

func reconstructPath(src, dst Person, parent map[Person]Person) []Person {
	path := []Person{dst}
	for n := dst; n != src; {
		n = parent[n]
		path = append(path, n)
	}

	// reverse into src -> dst order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
