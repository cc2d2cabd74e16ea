// Package mongo implements store.MessageStore on a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

const (
	DefaultURI        = "mongodb://localhost:27017/"
	DefaultDatabase   = "chat_app_db"
	DefaultCollection = "messages"
	DefaultTimeout    = 5 * time.Second
)

var errClosed = errors.New("mongo store closed")

// Options configures the MongoDB store.
type Options struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds server selection and every single operation.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.URI == "" {
		o.URI = DefaultURI
	}
	if o.Database == "" {
		o.Database = DefaultDatabase
	}
	if o.Collection == "" {
		o.Collection = DefaultCollection
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// document is the persisted shape of a message.
type document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Room      string             `bson:"room"`
	Sender    string             `bson:"sender"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"created_at,omitempty"`
}

func (d document) toMessage() store.Message {
	msg := store.Message{
		Room:      d.Room,
		Sender:    d.Sender,
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
	}
	if !d.ID.IsZero() {
		msg.ID = d.ID.Hex()
	}
	if !msg.CreatedAt.IsZero() {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}
	return msg
}

// Store is a MongoDB backed message store. The client is created and the
// (room, created_at) index ensured on first use; a failed initialisation is
// reported as store.ErrUnavailable and attempted again on the next call.
type Store struct {
	opts Options

	mu         sync.Mutex
	client     *mongo.Client
	collection *mongo.Collection
	closed     bool
}

// New returns a store for opts. It does not contact the server.
func New(opts Options) *Store {
	return &Store{opts: opts.withDefaults()}
}

func (s *Store) messages(ctx context.Context) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.Unavailable("init", errClosed)
	}
	if s.collection != nil {
		return s.collection, nil
	}

	if s.client == nil {
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(s.opts.URI).
			SetServerSelectionTimeout(s.opts.Timeout))
		if err != nil {
			return nil, store.Unavailable("connect", err)
		}
		s.client = client
	}

	coll := s.client.Database(s.opts.Database).Collection(s.opts.Collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, store.Unavailable("ensure index", err)
	}

	s.collection = coll
	return coll, nil
}

// Persist inserts a message stamped with the current UTC time.
func (s *Store) Persist(ctx context.Context, room, sender, text string) (store.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	coll, err := s.messages(ctx)
	if err != nil {
		return store.Message{}, err
	}

	doc := document{
		Room:      room,
		Sender:    sender,
		Text:      text,
		CreatedAt: store.Now(),
	}
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return store.Message{}, store.Unavailable("insert message", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}

	return doc.toMessage(), nil
}

// History returns the oldest limit messages of a room in chronological order.
func (s *Store) History(ctx context.Context, room string, limit int) ([]store.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	coll, err := s.messages(ctx)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(store.NormalizeLimit(limit)))

	cursor, err := coll.Find(ctx, bson.D{{Key: "room", Value: room}}, findOpts)
	if err != nil {
		return nil, store.Unavailable("find messages", err)
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Unavailable("decode messages", err)
	}

	messages := make([]store.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toMessage())
	}
	return messages, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	coll, err := s.messages(ctx)
	if err != nil {
		return err
	}
	if err := coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return store.Unavailable("ping", err)
	}
	return nil
}

// Close disconnects the client. Later calls fail with store.ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.collection = nil
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}
