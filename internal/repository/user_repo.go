package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/user-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the storage boundary for user documents. Counter and set
// mutations are atomic server-side updates, never read-modify-write in
// application memory.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByResetToken(ctx context.Context, digest string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetChallenge(ctx context.Context, id primitive.ObjectID, kind models.ChallengeKind, digest string, expiry time.Time) error
	ClearChallenge(ctx context.Context, id primitive.ObjectID, kind models.ChallengeKind) error
	MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error
	MarkPhoneVerified(ctx context.Context, id primitive.ObjectID) error

	IncrementLoginAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	RestartLoginAttempts(ctx context.Context, id primitive.ObjectID) error
	SetLock(ctx context.Context, id primitive.ObjectID, until time.Time) error
	ClearLock(ctx context.Context, id primitive.ObjectID) error

	AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	AddFollower(ctx context.Context, target, actor primitive.ObjectID) error
	RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) error
	FindProfilesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Profile, error)
}

// challengeFields maps each challenge kind to its digest and expiry bson keys.
var challengeFields = map[models.ChallengeKind][2]string{
	models.ChallengeEmailOTP:      {"email_verification_otp", "email_verification_otp_expiry"},
	models.ChallengePhoneOTP:      {"phone_verification_otp", "phone_verification_otp_expiry"},
	models.ChallengeEmailToken:    {"email_verification_token", "email_verification_token_expiry"},
	models.ChallengePasswordReset: {"reset_password_token", "reset_password_token_expiry"},
}

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database, collection string) UserRepository {
	col := db.Collection(collection)
	// indexes
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	return &mongoUserRepo{col: col}
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *mongoUserRepo) FindByResetToken(ctx context.Context, digest string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"reset_password_token": digest})
}

func (r *mongoUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *mongoUserRepo) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	set, ok := update["$set"].(bson.M)
	if !ok {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": hash}})
}

func (r *mongoUserRepo) SetChallenge(ctx context.Context, id primitive.ObjectID, kind models.ChallengeKind, digest string, expiry time.Time) error {
	fields, ok := challengeFields[kind]
	if !ok {
		return errors.New("unknown challenge kind")
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{fields[0]: digest, fields[1]: expiry}})
}

func (r *mongoUserRepo) ClearChallenge(ctx context.Context, id primitive.ObjectID, kind models.ChallengeKind) error {
	fields, ok := challengeFields[kind]
	if !ok {
		return errors.New("unknown challenge kind")
	}
	return r.updateByID(ctx, id, bson.M{"$unset": bson.M{fields[0]: "", fields[1]: ""}})
}

func (r *mongoUserRepo) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"is_email_verified": true}})
}

func (r *mongoUserRepo) MarkPhoneVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"is_phone_verified": true}})
}

// IncrementLoginAttempts bumps the counter server-side and returns the
// post-increment value, so concurrent failures never lose an update.
func (r *mongoUserRepo) IncrementLoginAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"login_attempts": 1})
	var out struct {
		LoginAttempts int `bson:"login_attempts"`
	}
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"login_attempts": 1}}, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return out.LoginAttempts, nil
}

func (r *mongoUserRepo) RestartLoginAttempts(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"login_attempts": 1},
		"$unset": bson.M{"lock_until": ""},
	})
}

func (r *mongoUserRepo) SetLock(ctx context.Context, id primitive.ObjectID, until time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"lock_until": until}})
}

func (r *mongoUserRepo) ClearLock(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"login_attempts": 0},
		"$unset": bson.M{"lock_until": ""},
	})
}

func (r *mongoUserRepo) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return r.updateByID(ctx, actor, bson.M{"$addToSet": bson.M{"following": target}})
}

func (r *mongoUserRepo) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return r.updateByID(ctx, actor, bson.M{"$pull": bson.M{"following": target}})
}

func (r *mongoUserRepo) AddFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	return r.updateByID(ctx, target, bson.M{"$addToSet": bson.M{"followers": actor}})
}

func (r *mongoUserRepo) RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	return r.updateByID(ctx, target, bson.M{"$pull": bson.M{"followers": actor}})
}

func (r *mongoUserRepo) FindProfilesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{
		"_id": 1, "username": 1, "full_name": 1, "is_email_verified": 1,
	})
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []models.Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
