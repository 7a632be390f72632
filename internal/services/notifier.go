package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/librarium-backend/internal/sse"
	"github.com/yungbote/librarium-backend/internal/types"
)

// GameNotifier pushes realtime events to a player's personal channel. All
// methods are fire-and-forget: notification failure never fails the
// operation that triggered it.
type GameNotifier interface {
	HabitCompleted(userID uuid.UUID, habit *types.Habit, xpEarned int)
	AchievementUnlocked(userID uuid.UUID, achievement *types.Achievement)
	LevelUp(userID uuid.UUID, level int, title string)
	MessageReceived(recipientID uuid.UUID, message *types.Message)
	BattleInvite(recipientID uuid.UUID, battle *types.Battle)
	BattleResolved(userID uuid.UUID, battle *types.Battle)
	ChallengeReceived(recipientID uuid.UUID, challenge *types.Challenge)
	FriendRequest(recipientID uuid.UUID, friendship *types.Friendship)
}

type gameNotifier struct {
	emit SSEEmitter
}

func NewGameNotifier(emit SSEEmitter) GameNotifier {
	return &gameNotifier{emit: emit}
}

func (n *gameNotifier) send(userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}

func (n *gameNotifier) HabitCompleted(userID uuid.UUID, habit *types.Habit, xpEarned int) {
	n.send(userID, sse.SSEEventHabitCompleted, map[string]any{
		"habit":     habit,
		"xp_earned": xpEarned,
	})
}

func (n *gameNotifier) AchievementUnlocked(userID uuid.UUID, achievement *types.Achievement) {
	n.send(userID, sse.SSEEventAchievementUnlocked, map[string]any{
		"achievement": achievement,
	})
}

func (n *gameNotifier) LevelUp(userID uuid.UUID, level int, title string) {
	n.send(userID, sse.SSEEventLevelUp, map[string]any{
		"level": level,
		"title": title,
	})
}

func (n *gameNotifier) MessageReceived(recipientID uuid.UUID, message *types.Message) {
	n.send(recipientID, sse.SSEEventMessageReceived, map[string]any{
		"message": message,
	})
}

func (n *gameNotifier) BattleInvite(recipientID uuid.UUID, battle *types.Battle) {
	n.send(recipientID, sse.SSEEventBattleInvite, map[string]any{
		"battle": battle,
	})
}

func (n *gameNotifier) BattleResolved(userID uuid.UUID, battle *types.Battle) {
	n.send(userID, sse.SSEEventBattleResolved, map[string]any{
		"battle": battle,
	})
}

func (n *gameNotifier) ChallengeReceived(recipientID uuid.UUID, challenge *types.Challenge) {
	n.send(recipientID, sse.SSEEventChallengeReceived, map[string]any{
		"challenge": challenge,
	})
}

func (n *gameNotifier) FriendRequest(recipientID uuid.UUID, friendship *types.Friendship) {
	n.send(recipientID, sse.SSEEventFriendRequest, map[string]any{
		"friendship": friendship,
	})
}
