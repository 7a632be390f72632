package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/observability"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/types"
)

const (
	minBattleMinutes = 30
	maxBattleMinutes = 7 * 24 * 60
)

type BattleService interface {
	Invite(ctx context.Context, challengerID, opponentID uuid.UUID, durationMinutes int) (*types.Battle, error)
	Accept(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error)
	Decline(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error)
	Get(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]*types.Battle, error)
	Finish(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error)
}

type battleService struct {
	db             *gorm.DB
	log            *logger.Logger
	battleRepo     repos.BattleRepo
	completionRepo repos.CompletionRepo
	friendshipRepo repos.FriendshipRepo
	userRepo       repos.UserRepo
	messageRepo    repos.MessageRepo
	notifier       GameNotifier
}

func NewBattleService(
	db *gorm.DB,
	log *logger.Logger,
	battleRepo repos.BattleRepo,
	completionRepo repos.CompletionRepo,
	friendshipRepo repos.FriendshipRepo,
	userRepo repos.UserRepo,
	messageRepo repos.MessageRepo,
	notifier GameNotifier,
) BattleService {
	return &battleService{
		db:             db,
		log:            log.With("service", "BattleService"),
		battleRepo:     battleRepo,
		completionRepo: completionRepo,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		messageRepo:    messageRepo,
		notifier:       notifier,
	}
}

func (bs *battleService) Invite(ctx context.Context, challengerID, opponentID uuid.UUID, durationMinutes int) (*types.Battle, error) {
	if challengerID == opponentID {
		return nil, validationError("cannot battle yourself")
	}
	if durationMinutes == 0 {
		durationMinutes = 24 * 60
	}
	if durationMinutes < minBattleMinutes || durationMinutes > maxBattleMinutes {
		return nil, validationError("battle duration must be between 30 minutes and 7 days")
	}

	var created *types.Battle
	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friends, err := bs.friendshipRepo.AreFriends(ctx, tx, challengerID, opponentID)
		if err != nil {
			return err
		}
		if !friends {
			return ErrForbidden
		}
		open, err := bs.battleRepo.FindOpenBetween(ctx, tx, challengerID, opponentID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: battle already open between these players", ErrConflict)
		}

		created = &types.Battle{
			ID:              uuid.New(),
			Player1ID:       challengerID,
			Player2ID:       opponentID,
			Kind:            "streak",
			Status:          types.BattleStatusPending,
			DurationMinutes: durationMinutes,
			WinnerXP:        100,
			LoserXP:         25,
		}
		appendBattleAction(created, types.BattleAction{
			Action: "invited",
			UserID: challengerID,
			At:     time.Now().UTC(),
		})
		return bs.battleRepo.Create(ctx, tx, created)
	})
	if err != nil {
		return nil, err
	}

	bs.notifier.BattleInvite(opponentID, created)
	return created, nil
}

func (bs *battleService) Accept(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error) {
	var updated *types.Battle
	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		battle, err := bs.battleRepo.GetByID(ctx, tx, battleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if battle.Player2ID != userID {
			return ErrForbidden
		}
		if battle.Status != types.BattleStatusPending {
			return fmt.Errorf("%w: battle already answered", ErrConflict)
		}

		now := time.Now().UTC()
		battle.Status = types.BattleStatusActive
		battle.StartedAt = now
		battle.EndsAt = now.Add(time.Duration(battle.DurationMinutes) * time.Minute)
		appendBattleAction(battle, types.BattleAction{Action: "accepted", UserID: userID, At: now})
		if err := bs.battleRepo.Save(ctx, tx, battle); err != nil {
			return err
		}
		updated = battle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (bs *battleService) Decline(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error) {
	var updated *types.Battle
	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		battle, err := bs.battleRepo.GetByID(ctx, tx, battleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if battle.Player2ID != userID {
			return ErrForbidden
		}
		if battle.Status != types.BattleStatusPending {
			return fmt.Errorf("%w: battle already answered", ErrConflict)
		}

		battle.Status = types.BattleStatusExpired
		appendBattleAction(battle, types.BattleAction{Action: "declined", UserID: userID, At: time.Now().UTC()})
		if err := bs.battleRepo.Save(ctx, tx, battle); err != nil {
			return err
		}
		updated = battle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns the battle, settling it first if its clock has run out.
func (bs *battleService) Get(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error) {
	battle, err := bs.battleRepo.GetByID(ctx, nil, battleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if battle.Player1ID != userID && battle.Player2ID != userID {
		return nil, ErrForbidden
	}
	if battle.Status == types.BattleStatusActive && time.Now().After(battle.EndsAt) {
		return bs.resolve(ctx, battle.ID)
	}
	return battle, nil
}

// Finish settles a battle on demand. Resolution normally happens lazily on
// reads; this endpoint lets a client force it the moment the clock runs out.
func (bs *battleService) Finish(ctx context.Context, userID, battleID uuid.UUID) (*types.Battle, error) {
	battle, err := bs.battleRepo.GetByID(ctx, nil, battleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if battle.Player1ID != userID && battle.Player2ID != userID {
		return nil, ErrForbidden
	}
	if battle.Status != types.BattleStatusActive {
		return nil, fmt.Errorf("%w: battle is not active", ErrConflict)
	}
	if time.Now().Before(battle.EndsAt) {
		return nil, fmt.Errorf("%w: battle has not ended yet", ErrConflict)
	}
	return bs.resolve(ctx, battle.ID)
}

func (bs *battleService) List(ctx context.Context, userID uuid.UUID, status string) ([]*types.Battle, error) {
	battles, err := bs.battleRepo.ListByUser(ctx, nil, userID, status)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i, battle := range battles {
		if battle.Status == types.BattleStatusActive && now.After(battle.EndsAt) {
			resolved, err := bs.resolve(ctx, battle.ID)
			if err != nil {
				bs.log.Warn("battle resolution failed", "battleID", battle.ID, "error", err)
				continue
			}
			battles[i] = resolved
		}
	}
	return battles, nil
}

// resolve settles an elapsed battle: each player's score is their completion
// count inside the battle window; the higher score wins and takes WinnerXP,
// the other takes LoserXP. A tie pays both players LoserXP and names no
// winner.
func (bs *battleService) resolve(ctx context.Context, battleID uuid.UUID) (*types.Battle, error) {
	var resolved *types.Battle
	var settled bool
	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		battle, err := bs.battleRepo.GetByID(ctx, tx, battleID)
		if err != nil {
			return err
		}
		// Another request may have settled it between our check and now.
		if battle.Status != types.BattleStatusActive || time.Now().Before(battle.EndsAt) {
			resolved = battle
			return nil
		}

		score1, err := bs.completionRepo.CountByUserBetween(ctx, tx, battle.Player1ID, battle.StartedAt, battle.EndsAt)
		if err != nil {
			return err
		}
		score2, err := bs.completionRepo.CountByUserBetween(ctx, tx, battle.Player2ID, battle.StartedAt, battle.EndsAt)
		if err != nil {
			return err
		}

		battle.ScorePlayer1 = int(score1)
		battle.ScorePlayer2 = int(score2)
		battle.Status = types.BattleStatusFinished

		player1, err := bs.userRepo.GetByID(ctx, tx, battle.Player1ID)
		if err != nil {
			return err
		}
		player2, err := bs.userRepo.GetByID(ctx, tx, battle.Player2ID)
		if err != nil {
			return err
		}

		award1, award2 := battle.LoserXP, battle.LoserXP
		switch {
		case score1 > score2:
			battle.WinnerID = &battle.Player1ID
			award1 = battle.WinnerXP
		case score2 > score1:
			battle.WinnerID = &battle.Player2ID
			award2 = battle.WinnerXP
		}

		newXP1 := player1.XP + award1
		if err := bs.userRepo.UpdateXPAndLevel(ctx, tx, battle.Player1ID, newXP1, LevelForXP(newXP1)); err != nil {
			return err
		}
		newXP2 := player2.XP + award2
		if err := bs.userRepo.UpdateXPAndLevel(ctx, tx, battle.Player2ID, newXP2, LevelForXP(newXP2)); err != nil {
			return err
		}

		// Each player gets a persisted system message with the verdict, in
		// the same transaction that settles the battle.
		for _, verdict := range battleVerdicts(battle, player1, player2) {
			if err := bs.messageRepo.Create(ctx, tx, verdict); err != nil {
				return fmt.Errorf("record battle message: %w", err)
			}
		}

		appendBattleAction(battle, types.BattleAction{
			Action: "resolved",
			Detail: map[string]any{"score_player1": score1, "score_player2": score2},
			At:     time.Now().UTC(),
		})
		if err := bs.battleRepo.Save(ctx, tx, battle); err != nil {
			return err
		}
		resolved = battle
		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settled {
		outcome, awarded := "tie", resolved.LoserXP*2
		if resolved.WinnerID != nil {
			outcome, awarded = "won", resolved.WinnerXP+resolved.LoserXP
		}
		if metrics := observability.Current(); metrics != nil {
			metrics.IncBattleResolved(outcome)
			metrics.AddXPAwarded("battle", awarded)
		}
		bs.notifier.BattleResolved(resolved.Player1ID, resolved)
		bs.notifier.BattleResolved(resolved.Player2ID, resolved)
	}
	return resolved, nil
}

// battleVerdicts builds the two system messages a settled battle produces,
// one per player, each sent from the opposing player.
func battleVerdicts(battle *types.Battle, player1, player2 *types.User) []*types.Message {
	text1 := fmt.Sprintf("Your battle against %s ended in a tie. +%d XP", player2.Username, battle.LoserXP)
	text2 := fmt.Sprintf("Your battle against %s ended in a tie. +%d XP", player1.Username, battle.LoserXP)
	if battle.WinnerID != nil {
		winner, loser := player1, player2
		winnerText, loserText := &text1, &text2
		if *battle.WinnerID == battle.Player2ID {
			winner, loser = player2, player1
			winnerText, loserText = &text2, &text1
		}
		*winnerText = fmt.Sprintf("You won the battle against %s! +%d XP", loser.Username, battle.WinnerXP)
		*loserText = fmt.Sprintf("You lost the battle against %s, but earned %d XP for the effort.", winner.Username, battle.LoserXP)
	}
	return []*types.Message{
		{
			ID:          uuid.New(),
			SenderID:    battle.Player2ID,
			RecipientID: battle.Player1ID,
			Body:        text1,
			Kind:        types.MessageKindSystem,
		},
		{
			ID:          uuid.New(),
			SenderID:    battle.Player1ID,
			RecipientID: battle.Player2ID,
			Body:        text2,
			Kind:        types.MessageKindSystem,
		},
	}
}

func appendBattleAction(battle *types.Battle, action types.BattleAction) {
	var actions []types.BattleAction
	if len(battle.Actions) > 0 {
		_ = json.Unmarshal(battle.Actions, &actions)
	}
	actions = append(actions, action)
	raw, err := json.Marshal(actions)
	if err != nil {
		return
	}
	battle.Actions = raw
}
