package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"identity-service/internal/employee"
	"identity-service/internal/middleware"
	"identity-service/internal/profile"
	"identity-service/internal/provision"
)

type createUserRequest struct {
	EmployeeCode string `json:"employeeCode" binding:"required"`
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	EmployeeType string `json:"employeeType"`
}

type profilePatchRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Email        *string `json:"email"`
	EmployeeType *string `json:"employeeType"`
}

type passwordUpdateRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type statusUpdateRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type userResponse struct {
	EmployeeCode   string `json:"employeeCode"`
	KeycloakUserID string `json:"keycloakUserId,omitempty"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	EmployeeType   string `json:"employeeType"`
	ManagerCode    string `json:"managerCode,omitempty"`
}

type pagedResponse struct {
	Content    []userResponse `json:"content"`
	PageNumber int            `json:"pageNumber"`
	PageSize   int            `json:"pageSize"`
	TotalCount int64          `json:"totalCount"`
}

func toUserResponse(rec employee.Record) userResponse {
	return userResponse{
		EmployeeCode:   rec.EmployeeCode,
		KeycloakUserID: rec.KeycloakUserID,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Email:          rec.Email,
		EmployeeType:   rec.EmployeeType,
		ManagerCode:    rec.ManagerCode,
	}
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.saga.Run(c.Request.Context(), provision.Request{
		EmployeeCode: req.EmployeeCode,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		EmployeeType: req.EmployeeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"userId":            result.KeycloakUserID,
		"temporaryPassword": result.TemporaryPassword,
		"notificationSent":  result.NotificationSent,
	})
}

func (h *Handler) getUser(c *gin.Context) {
	rec, err := h.store.GetByCode(c.Request.Context(), c.Param("employeeCode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*rec))
}

func (h *Handler) getOwnProfile(c *gin.Context) {
	subject, ok := middleware.SubjectFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	rec, err := h.store.GetByKeycloakID(c.Request.Context(), subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*rec))
}

func (h *Handler) listUsers(c *gin.Context) {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	filters, sorts, err := employee.Translate(params, c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	page, err := h.store.Page(c.Request.Context(), filters, sorts, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	content := make([]userResponse, 0, len(page.Items))
	for _, rec := range page.Items {
		content = append(content, toUserResponse(rec))
	}

	c.JSON(http.StatusOK, pagedResponse{
		Content:    content,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
	})
}

func (h *Handler) listAllUsers(c *gin.Context) {
	records, err := h.store.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]userResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toUserResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) updateActiveStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := c.Param("employeeCode")

	// raw lookup: the toggle must reach deactivated rows too
	if _, err := h.store.GetByCodeAny(c.Request.Context(), code); err != nil {
		writeError(c, err)
		return
	}
	if err := h.store.SetActive(c.Request.Context(), code, *req.IsActive); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) updateOwnProfile(c *gin.Context) {
	subject, ok := middleware.SubjectFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req profilePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.profiles.UpdateOwn(c.Request.Context(), subject, profile.Patch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		EmployeeType: req.EmployeeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) updateUserProfile(c *gin.Context) {
	var req profilePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.profiles.UpdateByCode(c.Request.Context(), c.Param("employeeCode"), profile.Patch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		EmployeeType: req.EmployeeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) updateOwnPassword(c *gin.Context) {
	subject, ok := middleware.SubjectFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req passwordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.profiles.UpdatePassword(c.Request.Context(), subject, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}
