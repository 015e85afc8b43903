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

const collectionOTPChallenges = "otp_challenges"

// OTPRepository stores challenges keyed by (user_id, purpose). Upsert
// replaces atomically, so a second issue supersedes rather than appends.
type OTPRepository struct {
	col *mongo.Collection
}

func NewOTPRepository(db *mongo.Database) *OTPRepository {
	return &OTPRepository{col: db.Collection(collectionOTPChallenges)}
}

type mongoOTPChallenge struct {
	UserID       string    `bson:"user_id"`
	Purpose      string    `bson:"purpose"`
	CodeHash     []byte    `bson:"code_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	ExpiresAt    time.Time `bson:"expires_at"`
	AttemptsUsed int       `bson:"attempts_used"`
	MaxAttempts  int       `bson:"max_attempts"`
	LockedUntil  time.Time `bson:"locked_until,omitempty"`
	Consumed     bool      `bson:"consumed"`
}

func (r *OTPRepository) Upsert(ctx context.Context, c *domain.OTPChallenge) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoOTPChallenge{
		UserID:       c.UserID,
		Purpose:      string(c.Purpose),
		CodeHash:     c.CodeHash,
		CreatedAt:    c.CreatedAt,
		ExpiresAt:    c.ExpiresAt,
		AttemptsUsed: c.AttemptsUsed,
		MaxAttempts:  c.MaxAttempts,
		LockedUntil:  c.LockedUntil,
		Consumed:     c.Consumed,
	}

	_, err := r.col.ReplaceOne(ctx,
		challengeFilter(c.UserID, c.Purpose),
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert otp challenge: %w", err)
	}
	return nil
}

func (r *OTPRepository) Find(ctx context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoOTPChallenge
	if err := r.col.FindOne(ctx, challengeFilter(userID, purpose)).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("find otp challenge: %w", err)
	}
	return mc.toDomain(), nil
}

// RegisterFailure atomically increments attempts_used and returns the
// post-increment challenge.
func (r *OTPRepository) RegisterFailure(ctx context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoOTPChallenge
	err := r.col.FindOneAndUpdate(ctx,
		challengeFilter(userID, purpose),
		bson.M{"$inc": bson.M{"attempts_used": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("register otp failure: %w", err)
	}
	return mc.toDomain(), nil
}

// Lock sets locked_until only when unset; the conditional filter makes the
// locked transition happen exactly once even under concurrent failures.
func (r *OTPRepository) Lock(ctx context.Context, userID string, purpose domain.OTPPurpose, until time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := challengeFilter(userID, purpose)
	filter["$or"] = []bson.M{
		{"locked_until": bson.M{"$exists": false}},
		{"locked_until": time.Time{}},
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"locked_until": until}})
	if err != nil {
		return false, fmt.Errorf("lock otp challenge: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// Consume marks the challenge used; the consumed=false filter guarantees a
// single winner under concurrent verifies.
func (r *OTPRepository) Consume(ctx context.Context, userID string, purpose domain.OTPPurpose) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := challengeFilter(userID, purpose)
	filter["consumed"] = false

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"consumed": true}})
	if err != nil {
		return false, fmt.Errorf("consume otp challenge: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *OTPRepository) Delete(ctx context.Context, userID string, purpose domain.OTPPurpose) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, challengeFilter(userID, purpose)); err != nil {
		return fmt.Errorf("delete otp challenge: %w", err)
	}
	return nil
}

func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// A locked challenge outlives its TTL: it must survive until the
	// cooldown elapses so re-issue stays blocked.
	filter := bson.M{
		"expires_at": bson.M{"$lt": now},
		"$or": []bson.M{
			{"locked_until": bson.M{"$exists": false}},
			{"locked_until": bson.M{"$lt": now}},
		},
	}
	res, err := r.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete expired otp challenges: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the unique (user_id, purpose) index that backs the
// one-active-challenge invariant.
func (r *OTPRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func challengeFilter(userID string, purpose domain.OTPPurpose) bson.M {
	return bson.M{"user_id": userID, "purpose": string(purpose)}
}

func (mc *mongoOTPChallenge) toDomain() *domain.OTPChallenge {
	return &domain.OTPChallenge{
		UserID:       mc.UserID,
		Purpose:      domain.OTPPurpose(mc.Purpose),
		CodeHash:     mc.CodeHash,
		CreatedAt:    mc.CreatedAt,
		ExpiresAt:    mc.ExpiresAt,
		AttemptsUsed: mc.AttemptsUsed,
		MaxAttempts:  mc.MaxAttempts,
		LockedUntil:  mc.LockedUntil,
		Consumed:     mc.Consumed,
	}
}
