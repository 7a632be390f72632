package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/librarium-backend/internal/services"
)

type ChallengeHandler struct {
	challengeService services.ChallengeService
}

func NewChallengeHandler(challengeService services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func (ch *ChallengeHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		RecipientID uuid.UUID `json:"recipient_id"`
		Kind        string    `json:"kind"`
		Message     string    `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	challenge, err := ch.challengeService.Send(c.Request.Context(), userID, req.RecipientID, req.Kind, req.Message)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"challenge": challenge})
}

func (ch *ChallengeHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challengeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	challenge, err := ch.challengeService.Accept(c.Request.Context(), userID, challengeID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"challenge": challenge})
}

func (ch *ChallengeHandler) Decline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challengeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	challenge, err := ch.challengeService.Decline(c.Request.Context(), userID, challengeID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"challenge": challenge})
}

func (ch *ChallengeHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challenges, err := ch.challengeService.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"challenges": challenges})
}
