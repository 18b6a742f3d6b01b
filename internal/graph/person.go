package graph

// Person is a node in the friendship graph. Two Person values with the same
// username are the same node.
type Person struct {
	username string
}

// NewPerson creates a Person for the given username
func NewPerson(username string) Person {
	return Person{username: username}
}

// Username returns the person's username
func (p Person) Username() string {
	return p.username
}

// String implements fmt.Stringer
func (p Person) String() string {
	return p.username
}

// IsZero reports whether p was never assigned a username
func (p Person) IsZero() bool {
	return p.username == ""
}

// Usernames maps a slice of people to their usernames, preserving order
func Usernames(people []Person) []string {
	names := make([]string, len(people))
	for i, p := range people {
		names[i] = p.username
	}
	return names
}
