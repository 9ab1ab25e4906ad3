package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 3 * time.Second

type MongoStore struct {
	users    *mongo.Collection
	convs    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:    db.Collection("users"),
		convs:    db.Collection("conversations"),
		messages: db.Collection("messages"),
	}
}

// EnsureIndexes creates the indexes history paging and auto-join rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("conversation_created_idx"),
	}); err != nil {
		return fmt.Errorf("messages index: %w", err)
	}
	if _, err := s.convs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "member_ids", Value: 1}, {Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("member_updated_idx"),
	}); err != nil {
		return fmt.Errorf("conversations index: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var u domain.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := s.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_online": online, "last_seen": lastSeen}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindConversationsForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.convs.Find(ctx, bson.M{"member_ids": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*domain.Conversation{}
	for cur.Next(ctx) {
		var c domain.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (s *MongoStore) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := s.convs.CountDocuments(ctx, bson.M{"_id": conversationID, "member_ids": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := s.convs.UpdateByID(ctx, conversationID, bson.M{"$set": bson.M{"updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ConversationSummary(ctx context.Context, conversationID string) (*domain.ConversationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c domain.Conversation
	if err := s.convs.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	sum := &domain.ConversationSummary{
		ID:        c.ID,
		Name:      c.Name,
		IsGroup:   c.IsGroup,
		UpdatedAt: c.UpdatedAt,
		Members:   make([]domain.MemberPresence, 0, len(c.MemberIDs)),
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": c.MemberIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	users := map[string]domain.User{}
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	// keep member order stable
	for _, id := range c.MemberIDs {
		if u, ok := users[id]; ok {
			sum.Members = append(sum.Members, u.Member())
		}
	}

	var last domain.Message
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err = s.messages.FindOne(ctx, bson.M{"conversation_id": conversationID, "is_deleted": false}, opts).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return nil, err
	default:
		if u, ok := users[last.SenderID]; ok {
			snd := u.Sender()
			last.Sender = &snd
		}
		sum.LastMessage = &last
	}
	return sum, nil
}

func (s *MongoStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// upsert on id so a retried insert is a no-op
	_, err := s.messages.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$setOnInsert": m}, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) FindMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var m domain.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MongoStore) UpdateMessage(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := s.messages.UpdateByID(ctx, m.ID, bson.M{"$set": bson.M{
		"content":    m.Content,
		"is_edited":  m.IsEdited,
		"is_deleted": m.IsDeleted,
		"updated_at": m.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"conversation_id": conversationID, "is_deleted": false}
	total, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, 0, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, total, nil
}
