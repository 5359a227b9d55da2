package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/repository/entity"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoValidationLog implements ValidationLog using MongoDB
type MongoValidationLog struct {
	collection *mongo.Collection
}

// NewMongoValidationLog creates a new MongoDB validation log
func NewMongoValidationLog(db *mongo.Database) ports.ValidationLog {
	return &MongoValidationLog{
		collection: db.Collection("channel_validations"),
	}
}

// Record inserts one validation attempt
func (r *MongoValidationLog) Record(ctx context.Context, attempt *domain.ValidationAttempt) error {
	doc := entity.MongoValidationDocFromDomain(attempt)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record validation attempt: %w", err)
	}

	attempt.ID = doc.ID.Hex()
	return nil
}

// ListByShop returns the most recent attempts for a shop, newest first
func (r *MongoValidationLog) ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.ValidationAttempt, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"shop": shop}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []*domain.ValidationAttempt
	for cursor.Next(ctx) {
		var doc entity.MongoValidationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode validation attempt: %w", err)
		}
		attempts = append(attempts, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return attempts, nil
}

// MemoryValidationLog keeps the most recent attempts per shop in memory and mirrors
// them to the structured log. Used when no database is configured.
type MemoryValidationLog struct {
	mu       sync.Mutex
	byShop   map[string][]*domain.ValidationAttempt
	capacity int
	logger   zerolog.Logger
}

// NewMemoryValidationLog creates an in-memory validation log holding capacity attempts per shop
func NewMemoryValidationLog(capacity int, logger zerolog.Logger) *MemoryValidationLog {
	if capacity <= 0 {
		capacity = 50
	}
	return &MemoryValidationLog{
		byShop:   make(map[string][]*domain.ValidationAttempt),
		capacity: capacity,
		logger:   logger,
	}
}

func (r *MemoryValidationLog) Record(_ context.Context, attempt *domain.ValidationAttempt) error {
	if attempt.ID == "" {
		attempt.ID = primitive.NewObjectID().Hex()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	stored := *attempt
	r.mu.Lock()
	list := append(r.byShop[attempt.Shop], &stored)
	if len(list) > r.capacity {
		list = list[len(list)-r.capacity:]
	}
	r.byShop[attempt.Shop] = list
	r.mu.Unlock()

	r.logger.Info().
		Str("sessionId", attempt.SessionID).
		Str("shop", attempt.Shop).
		Str("channelId", attempt.ChannelID).
		Str("channelName", attempt.ChannelName).
		Str("outcome", string(attempt.Outcome)).
		Str("message", attempt.Message).
		Dur("duration", attempt.Duration).
		Msg("Channel validation attempt")
	return nil
}

func (r *MemoryValidationLog) ListByShop(_ context.Context, shop string, limit int64) ([]*domain.ValidationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byShop[shop]
	attempts := make([]*domain.ValidationAttempt, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(attempts)) >= limit {
			break
		}
		a := *list[i]
		attempts = append(attempts, &a)
	}
	return attempts, nil
}
