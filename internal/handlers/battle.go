package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/librarium-backend/internal/services"
)

type BattleHandler struct {
	battleService services.BattleService
}

func NewBattleHandler(battleService services.BattleService) *BattleHandler {
	return &BattleHandler{battleService: battleService}
}

func (bh *BattleHandler) Invite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		OpponentID      uuid.UUID `json:"opponent_id"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	battle, err := bh.battleService.Invite(c.Request.Context(), userID, req.OpponentID, req.DurationMinutes)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"battle": battle})
}

func (bh *BattleHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	battleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	battle, err := bh.battleService.Accept(c.Request.Context(), userID, battleID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"battle": battle})
}

func (bh *BattleHandler) Decline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	battleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	battle, err := bh.battleService.Decline(c.Request.Context(), userID, battleID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"battle": battle})
}

func (bh *BattleHandler) Finish(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	battleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	battle, err := bh.battleService.Finish(c.Request.Context(), userID, battleID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"battle": battle})
}

func (bh *BattleHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	battleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	battle, err := bh.battleService.Get(c.Request.Context(), userID, battleID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"battle": battle})
}

func (bh *BattleHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	battles, err := bh.battleService.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"battles": battles})
}
