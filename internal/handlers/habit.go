package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/requestdata"
	"github.com/yungbote/librarium-backend/internal/services"
)

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrInvalidCredentials)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_id", err)
		return uuid.Nil, false
	}
	return id, true
}

type HabitHandler struct {
	habitService services.HabitService
}

func NewHabitHandler(habitService services.HabitService) *HabitHandler {
	return &HabitHandler{habitService: habitService}
}

func (hh *HabitHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input services.HabitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	habit, err := hh.habitService.Create(c.Request.Context(), userID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

func (hh *HabitHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filters := repos.HabitFilters{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_query", err)
			return
		}
		filters.Active = &active
	}
	habits, err := hh.habitService.List(c.Request.Context(), userID, filters)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"habits": habits})
}

func (hh *HabitHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	habit, err := hh.habitService.Get(c.Request.Context(), userID, habitID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"habit": habit})
}

func (hh *HabitHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.HabitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	habit, err := hh.habitService.Update(c.Request.Context(), userID, habitID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"habit": habit})
}

func (hh *HabitHandler) SetActive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	habit, err := hh.habitService.SetActive(c.Request.Context(), userID, habitID, req.Active)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"habit": habit})
}

func (hh *HabitHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := hh.habitService.Delete(c.Request.Context(), userID, habitID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "habit deleted"})
}

func (hh *HabitHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	// An empty body is a valid completion.
	_ = c.ShouldBindJSON(&req)

	result, err := hh.habitService.Complete(c.Request.Context(), userID, habitID, req.Note)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (hh *HabitHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_query", err)
			return
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_query", err)
			return
		}
		to = &t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	completions, err := hh.habitService.History(c.Request.Context(), userID, habitID, from, to, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"completions": completions})
}
