package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"healthchat/pkg/domain"
)

const (
	defaultMongoDatabase = "healthchat"
	mongoUsers           = "users"
	mongoHistories       = "chathistories"
)

type userDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
}

type messageDocument struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

type historyDocument struct {
	UserID    string            `bson:"userId"`
	Messages  []messageDocument `bson:"messages"`
	CreatedAt time.Time         `bson:"createdAt"`
}

// MongoStore implements Store on MongoDB, keeping one history document per user.
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	histories *mongo.Collection
}

// NewMongoStore connects, pings and ensures the unique indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("mongodb uri required")
	}
	database = strings.TrimSpace(database)
	if database == "" {
		database = defaultMongoDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		users:     db.Collection(mongoUsers),
		histories: db.Collection(mongoHistories),
	}
	if err := s.ensureIndexes(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	if _, err := s.histories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create history index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateUser inserts a user document.
func (s *MongoStore) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.users.InsertOne(ctx, userDocument{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUser
	}
	return err
}

// UserExists matches on either unique field.
func (s *MongoStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return domain.User{
		ID:           doc.ID,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		CreatedAt:    doc.CreatedAt,
	}, true, nil
}

// AppendExchange pushes the pair with an upserting update.
func (s *MongoStore) AppendExchange(ctx context.Context, userID, userMessage, assistantReply string) error {
	now := time.Now().UTC()
	exchange := domain.NewExchange(userMessage, assistantReply, now)
	docs := make(bson.A, 0, len(exchange))
	for _, msg := range exchange {
		docs = append(docs, messageToDocument(msg))
	}
	_, err := s.histories.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$push":        bson.M{"messages": bson.M{"$each": docs}},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// History returns the user's messages in stored order.
func (s *MongoStore) History(ctx context.Context, userID string) ([]domain.Message, error) {
	var doc historyDocument
	if err := s.histories.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.Message{}, nil
		}
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		msgs = append(msgs, messageFromDocument(m))
	}
	if err := validateMessages(msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ClearHistory sets messages to an empty array, upserting the document.
func (s *MongoStore) ClearHistory(ctx context.Context, userID string) error {
	_, err := s.histories.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set":         bson.M{"messages": bson.A{}},
			"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
		},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func messageToDocument(m domain.Message) messageDocument {
	return messageDocument{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
}

func messageFromDocument(d messageDocument) domain.Message {
	return domain.Message{Role: domain.Role(d.Role), Content: d.Content, Timestamp: d.Timestamp.UTC()}
}
