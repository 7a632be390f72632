package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

type fakeBattleRepo struct {
	battles map[uuid.UUID]*types.Battle
}

func (f *fakeBattleRepo) Create(ctx context.Context, tx *gorm.DB, battle *types.Battle) error {
	f.battles[battle.ID] = battle
	return nil
}

func (f *fakeBattleRepo) GetByID(ctx context.Context, tx *gorm.DB, battleID uuid.UUID) (*types.Battle, error) {
	battle, ok := f.battles[battleID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return battle, nil
}

func (f *fakeBattleRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Battle, error) {
	return nil, nil
}

func (f *fakeBattleRepo) ListPendingForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Battle, error) {
	return nil, nil
}

func (f *fakeBattleRepo) FindOpenBetween(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.Battle, error) {
	return nil, nil
}

func (f *fakeBattleRepo) Save(ctx context.Context, tx *gorm.DB, battle *types.Battle) error {
	f.battles[battle.ID] = battle
	return nil
}

func (f *fakeBattleRepo) CountWonByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type battleHarness struct {
	service     *battleService
	battles     *fakeBattleRepo
	completions *fakeCompletionRepo
	users       *fakeUserRepo
	messages    *fakeMessageRepo
	notifier    *recordingNotifier
	player1     uuid.UUID
	player2     uuid.UUID
	battleID    uuid.UUID
}

// newBattleHarness seeds an active battle whose clock has already run out.
func newBattleHarness(t *testing.T) *battleHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	battles := &fakeBattleRepo{battles: map[uuid.UUID]*types.Battle{}}
	completions := &fakeCompletionRepo{
		byHabit: map[uuid.UUID][]streak.Day{},
		byUser:  map[uuid.UUID][]streak.Day{},
	}
	users := &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
	messages := &fakeMessageRepo{}
	notifier := &recordingNotifier{}

	service := NewBattleService(db, log, battles, completions, nil, users, messages, notifier).(*battleService)

	player1 := uuid.New()
	users.users[player1] = &types.User{ID: player1, Username: "jinwoo", Level: 1}
	player2 := uuid.New()
	users.users[player2] = &types.User{ID: player2, Username: "cha", Level: 1}

	now := time.Now().UTC()
	battleID := uuid.New()
	battles.battles[battleID] = &types.Battle{
		ID:        battleID,
		Player1ID: player1,
		Player2ID: player2,
		Kind:      "streak",
		Status:    types.BattleStatusActive,
		StartedAt: now.Add(-2 * time.Hour),
		EndsAt:    now.Add(-time.Minute),
		WinnerXP:  100,
		LoserXP:   25,
	}

	return &battleHarness{
		service:     service,
		battles:     battles,
		completions: completions,
		users:       users,
		messages:    messages,
		notifier:    notifier,
		player1:     player1,
		player2:     player2,
		battleID:    battleID,
	}
}

func TestFinishSettlesBattle(t *testing.T) {
	h := newBattleHarness(t)
	h.completions.countsBetween = map[uuid.UUID]int64{h.player1: 3, h.player2: 1}

	battle, err := h.service.Finish(context.Background(), h.player1, h.battleID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if battle.Status != types.BattleStatusFinished {
		t.Errorf("status = %s, want finished", battle.Status)
	}
	if battle.WinnerID == nil || *battle.WinnerID != h.player1 {
		t.Errorf("winner = %v, want player1", battle.WinnerID)
	}
	if battle.ScorePlayer1 != 3 || battle.ScorePlayer2 != 1 {
		t.Errorf("scores = %d/%d, want 3/1", battle.ScorePlayer1, battle.ScorePlayer2)
	}
	if got := h.users.users[h.player1].XP; got != 100 {
		t.Errorf("winner xp = %d, want 100", got)
	}
	if got := h.users.users[h.player2].XP; got != 25 {
		t.Errorf("loser xp = %d, want 25", got)
	}
	if h.notifier.battlesResolved != 2 {
		t.Errorf("resolved notifications = %d, want 2", h.notifier.battlesResolved)
	}

	// Both players get a persisted verdict message.
	if len(h.messages.created) != 2 {
		t.Fatalf("messages = %d, want 2", len(h.messages.created))
	}
	byRecipient := map[uuid.UUID]*types.Message{}
	for _, m := range h.messages.created {
		if m.Kind != types.MessageKindSystem {
			t.Errorf("message kind = %s, want system", m.Kind)
		}
		byRecipient[m.RecipientID] = m
	}
	winnerMsg, ok := byRecipient[h.player1]
	if !ok || !strings.Contains(winnerMsg.Body, "won") {
		t.Errorf("winner message = %+v", winnerMsg)
	}
	loserMsg, ok := byRecipient[h.player2]
	if !ok || !strings.Contains(loserMsg.Body, "lost") {
		t.Errorf("loser message = %+v", loserMsg)
	}
}

func TestFinishTiePaysBoth(t *testing.T) {
	h := newBattleHarness(t)
	h.completions.countsBetween = map[uuid.UUID]int64{h.player1: 2, h.player2: 2}

	battle, err := h.service.Finish(context.Background(), h.player2, h.battleID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if battle.WinnerID != nil {
		t.Errorf("winner = %v, want none", battle.WinnerID)
	}
	if h.users.users[h.player1].XP != 25 || h.users.users[h.player2].XP != 25 {
		t.Errorf("xp = %d/%d, want 25/25",
			h.users.users[h.player1].XP, h.users.users[h.player2].XP)
	}
	if len(h.messages.created) != 2 {
		t.Fatalf("messages = %d, want 2", len(h.messages.created))
	}
	for _, m := range h.messages.created {
		if !strings.Contains(m.Body, "tie") {
			t.Errorf("tie message body = %q", m.Body)
		}
	}
}

func TestFinishAlreadySettled(t *testing.T) {
	h := newBattleHarness(t)
	h.completions.countsBetween = map[uuid.UUID]int64{h.player1: 1}

	if _, err := h.service.Finish(context.Background(), h.player1, h.battleID); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	_, err := h.service.Finish(context.Background(), h.player2, h.battleID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// Settlement side effects fired exactly once.
	if len(h.messages.created) != 2 {
		t.Errorf("messages = %d, want 2", len(h.messages.created))
	}
	if h.notifier.battlesResolved != 2 {
		t.Errorf("resolved notifications = %d, want 2", h.notifier.battlesResolved)
	}
}

func TestFinishBeforeClockRunsOut(t *testing.T) {
	h := newBattleHarness(t)
	h.battles.battles[h.battleID].EndsAt = time.Now().UTC().Add(time.Hour)

	_, err := h.service.Finish(context.Background(), h.player1, h.battleID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}
