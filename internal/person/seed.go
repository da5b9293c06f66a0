package person

import "context"

// cypherSeed creates the sample graph. It only uses MERGE, so running it
// again changes nothing.
const cypherSeed = `MERGE (a:Person {name: 'Alice'})
MERGE (b:Person {name: 'Bob'})
MERGE (c:Person {name: 'Chad'})
MERGE (d:Person {name: 'David'})
MERGE (e:Person {name: 'Eve'})
MERGE (a)-[:KNOWS]->(b)
MERGE (b)-[:KNOWS]->(a)
MERGE (a)-[:KNOWS]->(c)
MERGE (c)-[:KNOWS]->(a)
MERGE (b)-[:KNOWS]->(c)
MERGE (c)-[:KNOWS]->(b)
MERGE (d)-[:KNOWS]->(e)
MERGE (e)-[:KNOWS]->(d)
MERGE (c)-[:KNOWS]->(d)
MERGE (d)-[:KNOWS]->(c)`

// SeedNames are the people Seed creates.
var SeedNames = []string{"Alice", "Bob", "Chad", "David", "Eve"}

// Seed writes the sample graph: Alice, Bob and Chad know each other,
// David knows Eve, and Chad knows David.
func (s *Store) Seed(ctx context.Context) error {
	_, err := s.write(ctx, cypherSeed, nil)
	return err
}
