package services

import (
	"context"
	"errors"

	"github.com/fathima-sithara/user-service/internal/events"
	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultPageLimit = 20

// FollowPage is one page of profile summaries.
type FollowPage struct {
	Items   []models.Profile `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	HasMore bool             `json:"has_more"`
}

// SocialGraph maintains the directed follow relationships between users.
// Membership mutations are $addToSet/$pull updates, so they are idempotent
// and safe under concurrent requests for the same actor.
type SocialGraph struct {
	repo   repository.UserRepository
	events *events.Publisher
	log    *zap.Logger
}

func NewSocialGraph(repo repository.UserRepository, publisher *events.Publisher, log *zap.Logger) *SocialGraph {
	return &SocialGraph{repo: repo, events: publisher, log: log}
}

// Follow inserts target into the actor's following set. The reciprocal
// followers entry on the target is a separate best-effort write; a failure
// there is logged and repaired by the next follow/unfollow for that pair.
func (s *SocialGraph) Follow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if actorID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.repo.AddFollowing(ctx, actorID, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.repo.AddFollower(ctx, targetID, actorID); err != nil {
		s.log.Warn("reciprocal follower write failed",
			zap.String("actor", actorID.Hex()),
			zap.String("target", targetID.Hex()),
			zap.Error(err))
	}
	s.events.Publish(ctx, events.Event{
		Type:     events.TypeUserFollowed,
		UserID:   actorID.Hex(),
		TargetID: targetID.Hex(),
	})
	return nil
}

// Unfollow removes target from the actor's following set. Removing an absent
// entry is a no-op, not an error.
func (s *SocialGraph) Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if err := s.repo.RemoveFollowing(ctx, actorID, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.repo.RemoveFollower(ctx, targetID, actorID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.log.Warn("reciprocal follower removal failed",
			zap.String("actor", actorID.Hex()),
			zap.String("target", targetID.Hex()),
			zap.Error(err))
	}
	s.events.Publish(ctx, events.Event{
		Type:     events.TypeUserUnfollowed,
		UserID:   actorID.Hex(),
		TargetID: targetID.Hex(),
	})
	return nil
}

// IsFollowing reports whether actor currently follows target.
func (s *SocialGraph) IsFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) (bool, error) {
	u, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	for _, id := range u.Following {
		if id == targetID {
			return true, nil
		}
	}
	return false, nil
}

// ListFollowers returns one page of the user's followers.
func (s *SocialGraph) ListFollowers(ctx context.Context, userID primitive.ObjectID, page, limit int) (*FollowPage, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.pageOf(ctx, u.Followers, page, limit)
}

// ListFollowing returns one page of the users this user follows.
func (s *SocialGraph) ListFollowing(ctx context.Context, userID primitive.ObjectID, page, limit int) (*FollowPage, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.pageOf(ctx, u.Following, page, limit)
}

// pageOf slices the full relationship set (1-based pages) and resolves the
// window to profile summaries.
func (s *SocialGraph) pageOf(ctx context.Context, ids []primitive.ObjectID, page, limit int) (*FollowPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	total := len(ids)
	skip := (page - 1) * limit
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}
	window := ids[skip:end]

	items := make([]models.Profile, 0, len(window))
	if len(window) > 0 {
		profiles, err := s.repo.FindProfilesByIDs(ctx, window)
		if err != nil {
			return nil, err
		}
		// $in does not preserve order, restore the set order
		byID := make(map[primitive.ObjectID]models.Profile, len(profiles))
		for _, p := range profiles {
			byID[p.ID] = p
		}
		for _, id := range window {
			if p, ok := byID[id]; ok {
				items = append(items, p)
			}
		}
	}

	return &FollowPage{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: end < total,
	}, nil
}
