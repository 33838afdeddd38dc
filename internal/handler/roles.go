package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roleChangeRequest struct {
	Roles []string `json:"roles" binding:"required,min=1"`
}

type roleUpdateRequest struct {
	ToAssign []string `json:"toAssign"`
	ToRemove []string `json:"toRemove"`
}

type assignManagerRequest struct {
	EmployeeCode string `json:"employeeCode" binding:"required"`
	ManagerCode  string `json:"managerCode" binding:"required"`
}

func (h *Handler) assignRoles(c *gin.Context) {
	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roles.Assign(c.Request.Context(), c.Param("employeeCode"), req.Roles); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "roles assigned"})
}

func (h *Handler) unassignRoles(c *gin.Context) {
	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roles.Unassign(c.Request.Context(), c.Param("employeeCode"), req.Roles); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "roles unassigned"})
}

func (h *Handler) updateRoles(c *gin.Context) {
	var req roleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.roles.Update(c.Request.Context(), c.Param("employeeCode"), req.ToAssign, req.ToRemove)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "roles updated"})
}

func (h *Handler) listRoles(c *gin.Context) {
	effective, err := h.roles.ListEffective(c.Request.Context(), c.Param("employeeCode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, effective)
}

func (h *Handler) hasRole(c *gin.Context) {
	roleName := c.Query("roleName")
	if roleName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roleName is required"})
		return
	}

	ok, err := h.roles.HasRole(c.Request.Context(), c.Param("employeeCode"), roleName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

func (h *Handler) usersByRoles(c *gin.Context) {
	roleNames := c.QueryArray("roles")
	if len(roleNames) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roles is required"})
		return
	}

	users, err := h.roles.UsersByRoles(c.Request.Context(), roleNames)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getManagerName(c *gin.Context) {
	name, err := h.reporting.ManagerNameFor(c.Request.Context(), c.Param("employeeCode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manager": name})
}

func (h *Handler) assignManager(c *gin.Context) {
	var req assignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.reporting.AssignManager(c.Request.Context(), req.EmployeeCode, req.ManagerCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reporting manager assigned"})
}

func (h *Handler) employeesUnderManager(c *gin.Context) {
	records, err := h.reporting.EmployeesUnderManager(c.Request.Context(), c.Param("managerCode"))
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
