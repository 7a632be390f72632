package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/types"
)

// Friend is the other side of a friendship from the caller's perspective.
type Friend struct {
	FriendshipID uuid.UUID        `json:"friendship_id"`
	Since        *time.Time       `json:"since,omitempty"`
	User         types.PublicUser `json:"user"`
}

type FriendshipService interface {
	Request(ctx context.Context, requesterID, targetID uuid.UUID) (*types.Friendship, error)
	Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*types.Friendship, error)
	Reject(ctx context.Context, userID, friendshipID uuid.UUID) (*types.Friendship, error)
	Remove(ctx context.Context, userID, friendID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]Friend, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*types.Friendship, error)
	ListSent(ctx context.Context, userID uuid.UUID) ([]*types.Friendship, error)
}

type friendshipService struct {
	db             *gorm.DB
	log            *logger.Logger
	friendshipRepo repos.FriendshipRepo
	userRepo       repos.UserRepo
	messageRepo    repos.MessageRepo
	notifier       GameNotifier
}

func NewFriendshipService(
	db *gorm.DB,
	log *logger.Logger,
	friendshipRepo repos.FriendshipRepo,
	userRepo repos.UserRepo,
	messageRepo repos.MessageRepo,
	notifier GameNotifier,
) FriendshipService {
	return &friendshipService{
		db:             db,
		log:            log.With("service", "FriendshipService"),
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		messageRepo:    messageRepo,
		notifier:       notifier,
	}
}

func (fs *friendshipService) Request(ctx context.Context, requesterID, targetID uuid.UUID) (*types.Friendship, error) {
	if requesterID == targetID {
		return nil, validationError("cannot befriend yourself")
	}

	var created *types.Friendship
	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := fs.userRepo.GetByID(ctx, tx, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		requester, err := fs.userRepo.GetByID(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		existing, err := fs.friendshipRepo.FindBetween(ctx, tx, requesterID, targetID)
		if err != nil {
			return fmt.Errorf("check existing friendship: %w", err)
		}
		if existing != nil {
			switch existing.Status {
			case types.FriendshipStatusAccepted:
				return fmt.Errorf("%w: already friends", ErrConflict)
			case types.FriendshipStatusPending:
				return fmt.Errorf("%w: request already pending", ErrConflict)
			case types.FriendshipStatusBlocked:
				return ErrForbidden
			}
			// A rejected pair can try again: replace the dead row.
			if err := fs.friendshipRepo.Delete(ctx, tx, existing.ID); err != nil {
				return err
			}
		}

		created = &types.Friendship{
			ID:            uuid.New(),
			UserAID:       requesterID,
			UserBID:       targetID,
			Status:        types.FriendshipStatusPending,
			RequestedByID: requesterID,
		}
		if err := fs.friendshipRepo.Create(ctx, tx, created); err != nil {
			return err
		}
		notice := &types.Message{
			ID:          uuid.New(),
			SenderID:    requesterID,
			RecipientID: targetID,
			Body:        fmt.Sprintf("%s wants to be your friend!", requester.Username),
			Kind:        types.MessageKindSystem,
		}
		return fs.messageRepo.Create(ctx, tx, notice)
	})
	if err != nil {
		return nil, err
	}

	fs.notifier.FriendRequest(targetID, created)
	return created, nil
}

func (fs *friendshipService) respond(ctx context.Context, userID, friendshipID uuid.UUID, status string) (*types.Friendship, error) {
	var updated *types.Friendship
	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friendship, err := fs.friendshipRepo.GetByID(ctx, tx, friendshipID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		// Only the recipient of the request can answer it.
		if friendship.RequestedByID == userID ||
			(friendship.UserAID != userID && friendship.UserBID != userID) {
			return ErrForbidden
		}
		if friendship.Status != types.FriendshipStatusPending {
			return fmt.Errorf("%w: request already answered", ErrConflict)
		}

		friendship.Status = status
		if status == types.FriendshipStatusAccepted {
			now := time.Now().UTC()
			friendship.AcceptedAt = &now
		}
		if err := fs.friendshipRepo.Save(ctx, tx, friendship); err != nil {
			return err
		}
		// The requester learns the outcome through a persisted system
		// message; a rejection stays silent.
		if status == types.FriendshipStatusAccepted {
			accepter, err := fs.userRepo.GetByID(ctx, tx, userID)
			if err != nil {
				return err
			}
			notice := &types.Message{
				ID:          uuid.New(),
				SenderID:    userID,
				RecipientID: friendship.RequestedByID,
				Body:        fmt.Sprintf("%s accepted your friend request!", accepter.Username),
				Kind:        types.MessageKindSystem,
			}
			if err := fs.messageRepo.Create(ctx, tx, notice); err != nil {
				return err
			}
		}
		updated = friendship
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (fs *friendshipService) Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*types.Friendship, error) {
	return fs.respond(ctx, userID, friendshipID, types.FriendshipStatusAccepted)
}

func (fs *friendshipService) Reject(ctx context.Context, userID, friendshipID uuid.UUID) (*types.Friendship, error) {
	return fs.respond(ctx, userID, friendshipID, types.FriendshipStatusRejected)
}

func (fs *friendshipService) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friendship, err := fs.friendshipRepo.FindBetween(ctx, tx, userID, friendID)
		if err != nil {
			return err
		}
		if friendship == nil {
			return ErrNotFound
		}
		return fs.friendshipRepo.Delete(ctx, tx, friendship.ID)
	})
}

func (fs *friendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]Friend, error) {
	friendships, err := fs.friendshipRepo.ListFriends(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	friends := make([]Friend, 0, len(friendships))
	for _, friendship := range friendships {
		other := friendship.UserB
		if friendship.UserBID == userID {
			other = friendship.UserA
		}
		if other == nil {
			continue
		}
		friends = append(friends, Friend{
			FriendshipID: friendship.ID,
			Since:        friendship.AcceptedAt,
			User:         other.Public(),
		})
	}
	return friends, nil
}

func (fs *friendshipService) ListPending(ctx context.Context, userID uuid.UUID) ([]*types.Friendship, error) {
	return fs.friendshipRepo.ListPendingFor(ctx, nil, userID)
}

func (fs *friendshipService) ListSent(ctx context.Context, userID uuid.UUID) ([]*types.Friendship, error) {
	return fs.friendshipRepo.ListSentBy(ctx, nil, userID)
}
