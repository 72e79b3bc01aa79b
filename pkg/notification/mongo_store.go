package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage persists notification history in MongoDB, one document per
// notification keyed by the notification id.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a Mongo-backed notification store using the given
// database. Documents live in the "notifications" collection.
func NewMongoStorage(db *mongo.Database) (*MongoStorage, error) {
	if db == nil {
		return nil, ErrClientRequired
	}
	return &MongoStorage{coll: db.Collection("notifications")}, nil
}

// mongoNotification is the BSON shape of a stored notification.
type mongoNotification struct {
	ID           string         `bson:"_id"`
	UserID       string         `bson:"user_id"`
	Type         string         `bson:"type"`
	Title        string         `bson:"title"`
	Message      string         `bson:"message"`
	Status       string         `bson:"status"`
	Metadata     map[string]any `bson:"metadata,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
	SentAt       *time.Time     `bson:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `bson:"delivered_at,omitempty"`
	ReadAt       *time.Time     `bson:"read_at,omitempty"`
	ErrorMessage string         `bson:"error_message,omitempty"`
	DeliveryInfo map[string]any `bson:"delivery_info,omitempty"`
}

func toMongo(n Notification) mongoNotification {
	return mongoNotification{
		ID:           n.ID,
		UserID:       n.UserID,
		Type:         string(n.Type),
		Title:        n.Title,
		Message:      n.Message,
		Status:       string(n.Status),
		Metadata:     n.Metadata,
		CreatedAt:    n.CreatedAt,
		SentAt:       n.SentAt,
		DeliveredAt:  n.DeliveredAt,
		ReadAt:       n.ReadAt,
		ErrorMessage: n.ErrorMessage,
		DeliveryInfo: n.DeliveryInfo,
	}
}

func (m mongoNotification) toNotification() Notification {
	return Notification{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         Type(m.Type),
		Title:        m.Title,
		Message:      m.Message,
		Status:       Status(m.Status),
		Metadata:     m.Metadata,
		CreatedAt:    m.CreatedAt,
		SentAt:       m.SentAt,
		DeliveredAt:  m.DeliveredAt,
		ReadAt:       m.ReadAt,
		ErrorMessage: m.ErrorMessage,
		DeliveryInfo: m.DeliveryInfo,
	}
}

func (s *MongoStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrIDRequired
	}
	if _, err := s.coll.InsertOne(ctx, toMongo(n)); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var doc mongoNotification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	n := doc.toNotification()
	return &n, nil
}

func (s *MongoStorage) Update(ctx context.Context, n Notification) error {
	update := bson.M{"$set": bson.M{
		"status":        string(n.Status),
		"sent_at":       n.SentAt,
		"delivered_at":  n.DeliveredAt,
		"read_at":       n.ReadAt,
		"error_message": n.ErrorMessage,
		"delivery_info": n.DeliveryInfo,
	}}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": n.ID}, update)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStorage) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	filter := bson.M{"user_id": userID}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		filter["type"] = bson.M{"$in": types}
	}
	if opts.Since != nil {
		filter["created_at"] = bson.M{"$gt": *opts.Since}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer func() { _ = cur.Close(ctx) }()

	result := []Notification{}
	for cur.Next(ctx) {
		var doc mongoNotification
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		result = append(result, doc.toNotification())
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return result, nil
}

func (s *MongoStorage) CountByStatus(ctx context.Context, userID string, status Status) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "status": string(status)})
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(count), nil
}
