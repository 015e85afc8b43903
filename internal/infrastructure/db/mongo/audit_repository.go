package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesaops/identity-api/internal/core/domain"
)

const collectionLoginAudit = "login_audit"

// AuditRepository persists the append-only login audit log. Insert only;
// entries are never mutated or deleted by this subsystem.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionLoginAudit)}
}

type mongoAuditEntry struct {
	ID        primitive.ObjectID        `bson:"_id,omitempty"`
	UserID    string                    `bson:"user_id,omitempty"`
	Email     string                    `bson:"email"`
	IPAddress string                    `bson:"ip_address"`
	Device    domain.DeviceDescriptor   `bson:"device"`
	Location  domain.LocationDescriptor `bson:"location"`
	Status    string                    `bson:"status"`
	CreatedAt time.Time                 `bson:"created_at"`
}

func (r *AuditRepository) Insert(ctx context.Context, entry *domain.LoginAuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAuditEntry{
		UserID:    entry.UserID,
		Email:     entry.Email,
		IPAddress: entry.IPAddress,
		Device:    entry.Device,
		Location:  entry.Location,
		Status:    string(entry.Status),
		CreatedAt: entry.CreatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, userID string, limit int) ([]domain.LoginAuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.LoginAuditEntry
	for cursor.Next(ctx) {
		var me mongoAuditEntry
		if err := cursor.Decode(&me); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, domain.LoginAuditEntry{
			ID:        me.ID.Hex(),
			UserID:    me.UserID,
			Email:     me.Email,
			IPAddress: me.IPAddress,
			Device:    me.Device,
			Location:  me.Location,
			Status:    domain.LoginStatus(me.Status),
			CreatedAt: me.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// EnsureIndexes creates the indexes backing history queries.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
