package person

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Querier runs Cypher in managed transactions. *sentinelneo4j.Driver
// implements it.
type Querier interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

const (
	cypherList = `MATCH (n:Person) RETURN n.name AS name ORDER BY name`

	cypherGet = `MATCH (n:Person {name: $name}) RETURN n.name AS name LIMIT 1`

	// One row with a null name means the person exists without friends;
	// no rows means the person does not exist.
	cypherFriends = `MATCH (a:Person {name: $name})
OPTIONAL MATCH (a)-[:KNOWS]->(b:Person)
RETURN b.name AS name ORDER BY name`

	cypherCreate = `MERGE (n:Person {name: $name}) RETURN n.name AS name`

	cypherAddFriend = `MATCH (a:Person {name: $name})
MATCH (b:Person {name: $friend})
MERGE (a)-[:KNOWS]->(b)
MERGE (b)-[:KNOWS]->(a)
RETURN b.name AS name`
)

// Store reads and writes people. Every query goes through a circuit
// breaker; while it is open, methods return ErrUnavailable without
// touching the database.
type Store struct {
	db      Querier
	breaker *gobreaker.CircuitBreaker[[]*neo4j.Record]
	logger  zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	breaker BreakerConfig
	logger  zerolog.Logger
}

// WithBreakerConfig replaces DefaultBreakerConfig.
func WithBreakerConfig(cfg BreakerConfig) StoreOption {
	return func(o *storeOptions) {
		o.breaker = cfg
	}
}

// WithLogger sets the logger for breaker state changes.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// NewStore creates a Store over db.
func NewStore(db Querier, opts ...StoreOption) *Store {
	o := storeOptions{
		breaker: DefaultBreakerConfig(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		db:      db,
		breaker: newBreaker("person-store", o.breaker, o.logger),
		logger:  o.logger,
	}
}

// List returns every person ordered by name.
func (s *Store) List(ctx context.Context) ([]Person, error) {
	records, err := s.read(ctx, cypherList, nil)
	if err != nil {
		return nil, err
	}
	return peopleFrom(records), nil
}

// Get returns the person called name.
func (s *Store) Get(ctx context.Context, name string) (Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Person{}, err
	}

	records, err := s.read(ctx, cypherGet, map[string]any{"name": name})
	if err != nil {
		return Person{}, err
	}

	people := peopleFrom(records)
	if len(people) == 0 {
		return Person{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return people[0], nil
}

// Friends returns the people name KNOWS, ordered by name.
func (s *Store) Friends(ctx context.Context, name string) ([]Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	records, err := s.read(ctx, cypherFriends, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return peopleFrom(records), nil
}

// Create adds a person. Creating an existing person is a no-op.
func (s *Store) Create(ctx context.Context, name string) (Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Person{}, err
	}

	if _, err := s.write(ctx, cypherCreate, map[string]any{"name": name}); err != nil {
		return Person{}, err
	}
	return Person{Name: name}, nil
}

// AddFriend makes name and friend KNOW each other. Both must exist.
func (s *Store) AddFriend(ctx context.Context, name, friend string) (Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Person{}, err
	}
	friend, err = normalizeName(friend)
	if err != nil {
		return Person{}, err
	}
	if name == friend {
		return Person{}, ErrSelfFriendship
	}

	records, err := s.write(ctx, cypherAddFriend, map[string]any{"name": name, "friend": friend})
	if err != nil {
		return Person{}, err
	}
	if len(records) == 0 {
		return Person{}, fmt.Errorf("%w: %q or %q", ErrNotFound, name, friend)
	}
	return Person{Name: friend}, nil
}

func (s *Store) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return s.execute(func() ([]*neo4j.Record, error) {
		return s.db.ExecuteRead(ctx, cypher, params)
	})
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return s.execute(func() ([]*neo4j.Record, error) {
		return s.db.ExecuteWrite(ctx, cypher, params)
	})
}

func (s *Store) execute(query func() ([]*neo4j.Record, error)) ([]*neo4j.Record, error) {
	records, err := s.breaker.Execute(query)
	if isBreakerRejection(err) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return records, err
}

// peopleFrom maps the name column of records. Null names, produced by
// OPTIONAL MATCH, are skipped.
func peopleFrom(records []*neo4j.Record) []Person {
	people := make([]Person, 0, len(records))
	for _, record := range records {
		v, ok := record.Get("name")
		if !ok {
			continue
		}
		if name, ok := v.(string); ok {
			people = append(people, Person{Name: name})
		}
	}
	return people
}
