package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesaops/identity-api/internal/core/domain"
)

const collectionSessions = "sessions"

// SessionRepository is the authoritative session store. All mutations are
// single-document atomic writes; revocation is deletion, so a revoked token
// resolves exactly like an unknown one.
type SessionRepository struct {
	col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{col: db.Collection(collectionSessions)}
}

type mongoSession struct {
	ID           string                    `bson:"_id"`
	UserID       string                    `bson:"user_id"`
	TokenHash    []byte                    `bson:"token_hash"`
	Expires      time.Time                 `bson:"expires"`
	LastActiveAt time.Time                 `bson:"last_active_at"`
	UserAgent    string                    `bson:"user_agent"`
	Device       domain.DeviceDescriptor   `bson:"device"`
	IPAddress    string                    `bson:"ip_address"`
	Location     domain.LocationDescriptor `bson:"location"`
	CreatedAt    time.Time                 `bson:"created_at"`
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toMongoSession(s))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, tokenHash []byte) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"token_hash": tokenHash})
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *SessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSession
	if err := r.col.FindOne(ctx, filter).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return ms.toDomain(), nil
}

func (r *SessionRepository) List(ctx context.Context, userID string) ([]domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	for cursor.Next(ctx) {
		var ms mongoSession
		if err := cursor.Decode(&ms); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, *ms.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Touch conditionally bumps lastActiveAt: the update only matches when the
// stored value predates the threshold, so rapid concurrent touches collapse
// to one write.
func (r *SessionRepository) Touch(ctx context.Context, tokenHash []byte, now time.Time, threshold time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"token_hash":     tokenHash,
			"last_active_at": bson.M{"$lt": threshold},
		},
		bson.M{"$set": bson.M{"last_active_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteBatch removes up to limit sessions. System-wide revocation loops
// over this so no single store operation is unbounded.
func (r *SessionRepository) DeleteBatch(ctx context.Context, limit int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{},
		options.Find().SetLimit(int64(limit)).SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return 0, fmt.Errorf("delete batch: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"expires": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the indexes the session queries rely on. The token
// hash index is unique: one token, one session.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func toMongoSession(s *domain.Session) mongoSession {
	return mongoSession{
		ID:           s.ID,
		UserID:       s.UserID,
		TokenHash:    s.TokenHash,
		Expires:      s.Expires,
		LastActiveAt: s.LastActiveAt,
		UserAgent:    s.UserAgent,
		Device:       s.Device,
		IPAddress:    s.IPAddress,
		Location:     s.Location,
		CreatedAt:    s.CreatedAt,
	}
}

func (ms *mongoSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:           ms.ID,
		UserID:       ms.UserID,
		TokenHash:    ms.TokenHash,
		Expires:      ms.Expires,
		LastActiveAt: ms.LastActiveAt,
		UserAgent:    ms.UserAgent,
		Device:       ms.Device,
		IPAddress:    ms.IPAddress,
		Location:     ms.Location,
		CreatedAt:    ms.CreatedAt,
	}
}
