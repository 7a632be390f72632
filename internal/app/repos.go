package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	UserToken   repos.UserTokenRepo
	Habit       repos.HabitRepo
	Completion  repos.CompletionRepo
	Achievement repos.AchievementRepo
	Battle      repos.BattleRepo
	Challenge   repos.ChallengeRepo
	Message     repos.MessageRepo
	Friendship  repos.FriendshipRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		UserToken:   repos.NewUserTokenRepo(db, log),
		Habit:       repos.NewHabitRepo(db, log),
		Completion:  repos.NewCompletionRepo(db, log),
		Achievement: repos.NewAchievementRepo(db, log),
		Battle:      repos.NewBattleRepo(db, log),
		Challenge:   repos.NewChallengeRepo(db, log),
		Message:     repos.NewMessageRepo(db, log),
		Friendship:  repos.NewFriendshipRepo(db, log),
	}
}
