package entity

import (
	"time"

	"gaint-shopify-connector/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoValidationDoc represents a channel validation attempt in MongoDB
type MongoValidationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SessionID   string             `bson:"sessionId"`
	Shop        string             `bson:"shop"`
	ChannelID   string             `bson:"channelId"`
	ChannelName string             `bson:"channelName"`
	Outcome     string             `bson:"outcome"`
	Message     string             `bson:"message,omitempty"`
	DurationMS  int64              `bson:"durationMs"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoValidationDoc) ToDomain() *domain.ValidationAttempt {
	return &domain.ValidationAttempt{
		ID:          d.ID.Hex(),
		SessionID:   d.SessionID,
		Shop:        d.Shop,
		ChannelID:   d.ChannelID,
		ChannelName: d.ChannelName,
		Outcome:     domain.ResultKind(d.Outcome),
		Message:     d.Message,
		Duration:    time.Duration(d.DurationMS) * time.Millisecond,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoValidationDocFromDomain converts a domain entity to a MongoDB document
func MongoValidationDocFromDomain(attempt *domain.ValidationAttempt) *MongoValidationDoc {
	doc := &MongoValidationDoc{
		SessionID:   attempt.SessionID,
		Shop:        attempt.Shop,
		ChannelID:   attempt.ChannelID,
		ChannelName: attempt.ChannelName,
		Outcome:     string(attempt.Outcome),
		Message:     attempt.Message,
		DurationMS:  attempt.Duration.Milliseconds(),
		CreatedAt:   attempt.CreatedAt,
	}

	if attempt.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(attempt.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
