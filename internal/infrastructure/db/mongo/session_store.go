package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sdca/hris-portal/internal/core/domain"
)

const sessionCollection = "client_sessions"

// SessionStore persists the current session as a single document keyed by
// namespace, so user and token are always written together.
type SessionStore struct {
	coll      *mongo.Collection
	namespace string
}

func NewSessionStore(db *mongo.Database, namespace string) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{coll: db.Collection(sessionCollection), namespace: namespace}
}

type mongoSession struct {
	ID        string `bson:"_id"`
	User      string `bson:"user"`
	Token     string `bson:"token"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (s *SessionStore) Load(ctx context.Context) (domain.Session, error) {
	var doc mongoSession
	if err := s.coll.FindOne(ctx, bson.M{"_id": s.namespace}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}
	return domain.DecodeSession(doc.User, doc.Token)
}

func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	user, token, err := domain.EncodeSession(sess)
	if err != nil {
		return err
	}
	doc := mongoSession{
		ID:        s.namespace,
		User:      user,
		Token:     token,
		UpdatedAt: time.Now().UTC().Unix(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": s.namespace}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": s.namespace}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
