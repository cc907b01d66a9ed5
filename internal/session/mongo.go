package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"clinic-intake/internal/slots"
)

const (
	collectionSessions = "sessions"
	collectionMessages = "messages"

	opTimeout = 5 * time.Second
)

// MongoStore is the document-store implementation of Store. One document
// per session; message records are append-only in their own collection.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("connected to MongoDB database %s", dbName)
	return &MongoStore{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type sessionDoc struct {
	IdentityHash  string            `bson:"identity_hash"`
	Status        string            `bson:"status"`
	Slots         map[string]string `bson:"slots"`
	EmergencyFlag bool              `bson:"emergency_flag"`
	Version       int64             `bson:"version"`
	CreatedAt     time.Time         `bson:"created_at"`
	LastActivity  time.Time         `bson:"last_activity"`
	CompletedAt   *time.Time        `bson:"completed_at,omitempty"`
}

func (m *MongoStore) FindActive(ctx context.Context, identityHash string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Emergency sessions stay active on purpose: they must keep absorbing
	// messages without a new questionnaire starting underneath them.
	filter := bson.M{
		"identity_hash": identityHash,
		"status":        bson.M{"$nin": []string{string(StatusCompleted), string(StatusExpired)}},
	}
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})

	var doc sessionDoc
	err := m.database.Collection(collectionSessions).FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return doc.toSession(), nil
}

func (m *MongoStore) Upsert(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s.Version++
	doc := sessionDoc{
		IdentityHash:  s.IdentityHash,
		Status:        string(s.Status),
		Slots:         s.Slots.Values(),
		EmergencyFlag: s.EmergencyFlag,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
		CompletedAt:   s.CompletedAt,
	}

	// A session is identified by identity hash plus creation time, so
	// terminal sessions stay behind as audit records.
	filter := bson.M{"identity_hash": s.IdentityHash, "created_at": s.CreatedAt}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.database.Collection(collectionSessions).ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

type messageDoc struct {
	IdentityHash string            `bson:"identity_hash"`
	Direction    string            `bson:"direction"`
	MessageID    string            `bson:"message_id"`
	Text         string            `bson:"text"`
	Timestamp    time.Time         `bson:"timestamp"`
	Meta         map[string]string `bson:"meta,omitempty"`
}

func (m *MongoStore) AppendMessage(ctx context.Context, rec MessageRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := messageDoc{
		IdentityHash: rec.IdentityHash,
		Direction:    string(rec.Direction),
		MessageID:    rec.MessageID,
		Text:         rec.Text,
		Timestamp:    rec.Timestamp,
		Meta:         rec.Meta,
	}
	if _, err := m.database.Collection(collectionMessages).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (m *MongoStore) MessagesSince(ctx context.Context, identityHash string, since time.Time, limit int64) ([]MessageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"identity_hash": identityHash,
		"timestamp":     bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.M{"timestamp": 1}).SetLimit(limit)

	cur, err := m.database.Collection(collectionMessages).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var out []MessageRecord
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, MessageRecord{
			IdentityHash: doc.IdentityHash,
			Direction:    Direction(doc.Direction),
			MessageID:    doc.MessageID,
			Text:         doc.Text,
			Timestamp:    doc.Timestamp,
			Meta:         doc.Meta,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (m *MongoStore) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sessions := m.database.Collection(collectionSessions)
	messages := m.database.Collection(collectionMessages)

	total, err := sessions.EstimatedDocumentCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}
	active, err := sessions.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []string{string(StatusGreeted), string(StatusOpen)}},
	})
	if err != nil {
		return Stats{}, fmt.Errorf("count active sessions: %w", err)
	}
	msgs, err := messages.EstimatedDocumentCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count messages: %w", err)
	}
	return Stats{Sessions: total, ActiveSessions: active, Messages: msgs}, nil
}

func (d sessionDoc) toSession() *Session {
	return &Session{
		IdentityHash:  d.IdentityHash,
		Status:        Status(d.Status),
		Slots:         slots.FromValues(d.Slots),
		EmergencyFlag: d.EmergencyFlag,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		LastActivity:  d.LastActivity,
		CompletedAt:   d.CompletedAt,
	}
}
