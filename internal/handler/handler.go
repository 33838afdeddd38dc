package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/profile"
	"identity-service/internal/provision"
	"identity-service/internal/reporting"
	"identity-service/internal/roles"
)

// Handler is the thin HTTP edge: decode the request, call a component,
// map the error kind to a status. No business logic lives here.
type Handler struct {
	saga      *provision.Saga
	profiles  *profile.Coordinator
	roles     *roles.Engine
	reporting *reporting.Resolver
	store     employee.Store
}

func New(
	saga *provision.Saga,
	profiles *profile.Coordinator,
	roleEngine *roles.Engine,
	reportingResolver *reporting.Resolver,
	store employee.Store,
) *Handler {
	return &Handler{
		saga:      saga,
		profiles:  profiles,
		roles:     roleEngine,
		reporting: reportingResolver,
		store:     store,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	ims := r.Group("/ims")
	ims.Use(requireAuth)

	ims.POST("/users", h.createUser)
	ims.GET("/users", h.listUsers)
	ims.GET("/users/all", h.listAllUsers)

	ims.GET("/users/my", h.getOwnProfile)
	ims.PATCH("/users/my", h.updateOwnProfile)
	ims.POST("/users/my/password", h.updateOwnPassword)

	ims.GET("/users/:employeeCode", h.getUser)
	ims.PATCH("/users/:employeeCode", h.updateUserProfile)
	ims.PUT("/users/:employeeCode/status", h.updateActiveStatus)

	ims.POST("/users/:employeeCode/roles", h.assignRoles)
	ims.DELETE("/users/:employeeCode/roles", h.unassignRoles)
	ims.PUT("/users/:employeeCode/roles", h.updateRoles)
	ims.GET("/users/:employeeCode/roles", h.listRoles)
	ims.GET("/users/:employeeCode/has-role", h.hasRole)
	ims.GET("/roles/users", h.usersByRoles)

	ims.GET("/users/:employeeCode/manager", h.getManagerName)
	ims.POST("/users/manager", h.assignManager)
	ims.GET("/users/manager/:managerCode", h.employeesUnderManager)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindConflict:      http.StatusConflict,
	apperr.KindForbidden:     http.StatusForbidden,
	apperr.KindUnavailable:   http.StatusServiceUnavailable,
	apperr.KindRejected:      http.StatusBadGateway,
	apperr.KindPartialSync:   http.StatusInternalServerError,
	apperr.KindInvalidFilter: http.StatusBadRequest,
	apperr.KindInvalidSort:   http.StatusBadRequest,
	apperr.KindInternal:      http.StatusInternalServerError,
}

func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"code":    string(kind),
		"message": apperr.MessageOf(err),
	})
}
