package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/types"
)

var challengeDurations = map[string]time.Duration{
	"streak_3_days":  3 * 24 * time.Hour,
	"streak_7_days":  7 * 24 * time.Hour,
	"streak_30_days": 30 * 24 * time.Hour,
}

type ChallengeService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, kind, message string) (*types.Challenge, error)
	Accept(ctx context.Context, userID, challengeID uuid.UUID) (*types.Challenge, error)
	Decline(ctx context.Context, userID, challengeID uuid.UUID) (*types.Challenge, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]*types.Challenge, error)
}

type challengeService struct {
	db             *gorm.DB
	log            *logger.Logger
	challengeRepo  repos.ChallengeRepo
	friendshipRepo repos.FriendshipRepo
	messageRepo    repos.MessageRepo
	notifier       GameNotifier
}

func NewChallengeService(
	db *gorm.DB,
	log *logger.Logger,
	challengeRepo repos.ChallengeRepo,
	friendshipRepo repos.FriendshipRepo,
	messageRepo repos.MessageRepo,
	notifier GameNotifier,
) ChallengeService {
	return &challengeService{
		db:             db,
		log:            log.With("service", "ChallengeService"),
		challengeRepo:  challengeRepo,
		friendshipRepo: friendshipRepo,
		messageRepo:    messageRepo,
		notifier:       notifier,
	}
}

func (cs *challengeService) Send(ctx context.Context, senderID, recipientID uuid.UUID, kind, message string) (*types.Challenge, error) {
	if senderID == recipientID {
		return nil, validationError("cannot challenge yourself")
	}
	kind = strings.TrimSpace(kind)
	duration, ok := challengeDurations[kind]
	if !ok {
		return nil, validationError("unknown challenge kind")
	}

	var created *types.Challenge
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friends, err := cs.friendshipRepo.AreFriends(ctx, tx, senderID, recipientID)
		if err != nil {
			return err
		}
		if !friends {
			return ErrForbidden
		}
		pending, err := cs.challengeRepo.FindPendingBetween(ctx, tx, senderID, recipientID)
		if err != nil {
			return err
		}
		if pending != nil {
			return fmt.Errorf("%w: challenge already pending", ErrConflict)
		}

		created = &types.Challenge{
			ID:          uuid.New(),
			SenderID:    senderID,
			RecipientID: recipientID,
			Kind:        kind,
			Message:     strings.TrimSpace(message),
			Status:      types.ChallengeStatusPending,
			EndsAt:      time.Now().UTC().Add(duration),
		}
		if err := cs.challengeRepo.Create(ctx, tx, created); err != nil {
			return err
		}

		// The invite also lands in the recipient's inbox.
		notice := &types.Message{
			ID:          uuid.New(),
			SenderID:    senderID,
			RecipientID: recipientID,
			Body:        fmt.Sprintf("You have been challenged: %s", kind),
			Kind:        types.MessageKindChallenge,
		}
		return cs.messageRepo.Create(ctx, tx, notice)
	})
	if err != nil {
		return nil, err
	}

	cs.notifier.ChallengeReceived(recipientID, created)
	return created, nil
}

func (cs *challengeService) respond(ctx context.Context, userID, challengeID uuid.UUID, status string) (*types.Challenge, error) {
	var updated *types.Challenge
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		challenge, err := cs.challengeRepo.GetByID(ctx, tx, challengeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if challenge.RecipientID != userID {
			return ErrForbidden
		}
		if challenge.Status != types.ChallengeStatusPending {
			return fmt.Errorf("%w: challenge already answered", ErrConflict)
		}
		if time.Now().After(challenge.EndsAt) {
			challenge.Status = types.ChallengeStatusExpired
			if err := cs.challengeRepo.Save(ctx, tx, challenge); err != nil {
				return err
			}
			return fmt.Errorf("%w: challenge expired", ErrConflict)
		}

		now := time.Now().UTC()
		challenge.Status = status
		challenge.RespondedAt = &now
		if err := cs.challengeRepo.Save(ctx, tx, challenge); err != nil {
			return err
		}
		updated = challenge
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (cs *challengeService) Accept(ctx context.Context, userID, challengeID uuid.UUID) (*types.Challenge, error) {
	return cs.respond(ctx, userID, challengeID, types.ChallengeStatusAccepted)
}

func (cs *challengeService) Decline(ctx context.Context, userID, challengeID uuid.UUID) (*types.Challenge, error) {
	return cs.respond(ctx, userID, challengeID, types.ChallengeStatusDeclined)
}

func (cs *challengeService) List(ctx context.Context, userID uuid.UUID, status string) ([]*types.Challenge, error) {
	return cs.challengeRepo.ListByUser(ctx, nil, userID, status)
}
