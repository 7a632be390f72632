package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/librarium-backend/internal/services"
)

type FriendshipHandler struct {
	friendshipService services.FriendshipService
}

func NewFriendshipHandler(friendshipService services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

func (fh *FriendshipHandler) Request(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	friendship, err := fh.friendshipService.Request(c.Request.Context(), userID, req.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"friendship": friendship})
}

func (fh *FriendshipHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friendshipID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	friendship, err := fh.friendshipService.Accept(c.Request.Context(), userID, friendshipID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"friendship": friendship})
}

func (fh *FriendshipHandler) Reject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friendshipID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	friendship, err := fh.friendshipService.Reject(c.Request.Context(), userID, friendshipID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"friendship": friendship})
}

func (fh *FriendshipHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friendID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	if err := fh.friendshipService.Remove(c.Request.Context(), userID, friendID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "friend removed"})
}

func (fh *FriendshipHandler) ListFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friends, err := fh.friendshipService.ListFriends(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"friends": friends})
}

func (fh *FriendshipHandler) ListPending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	pending, err := fh.friendshipService.ListPending(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pending": pending})
}

func (fh *FriendshipHandler) ListSent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sent, err := fh.friendshipService.ListSent(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sent": sent})
}
