package user

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/pagination"
	"github.com/kidpech/users_api/pkg/response"
	"github.com/kidpech/users_api/pkg/validation"
)

const (
	pageKey   = "users.page"
	searchKey = "users.search"
	idKey     = "users.id"
	updateKey = "users.update"
)

// Handler wires HTTP routes to the Service.
type Handler struct {
	service *Service
	verbose bool
}

// NewHandler returns a Handler. verbose exposes internal error detail and is
// meant for development only.
func NewHandler(service *Service, verbose bool) *Handler {
	return &Handler{service: service, verbose: verbose}
}

// RegisterRoutes mounts the /users routes. Each chain validates input, then
// requires a session, then executes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	users := rg.Group("/users")
	{
		users.GET("", h.validatePage, authMW, h.listUsers)
		users.GET("/search", h.validateSearch, authMW, h.searchUsers)
		users.GET("/stats", authMW, h.getStats)
		users.GET("/me", authMW, h.getMe)
		users.GET("/:id", h.validateID, authMW, h.getUser)
		users.PUT("/:id", h.validateID, h.validateUpdate, authMW, h.updateUser)
		users.PATCH("/:id", h.validateID, h.validateUpdate, authMW, h.updateUser)
		users.DELETE("/:id", h.validateID, authMW, h.deleteUser)
	}
}

func (h *Handler) validatePage(c *gin.Context) {
	page, violations := ParsePagination(c.Request.URL.Query())
	if !violations.Empty() {
		response.ValidationError(c, violations)
		return
	}
	c.Set(pageKey, page)
	c.Next()
}

func (h *Handler) validateSearch(c *gin.Context) {
	search, page, violations := ParseSearch(c.Request.URL.Query())
	if !violations.Empty() {
		response.ValidationError(c, violations)
		return
	}
	c.Set(searchKey, search)
	c.Set(pageKey, page)
	c.Next()
}

func (h *Handler) validateID(c *gin.Context) {
	param, violations := ParseIDParam(c.Param("id"))
	if !violations.Empty() {
		response.ValidationError(c, violations)
		return
	}
	c.Set(idKey, param.ID)
	c.Next()
}

func (h *Handler) validateUpdate(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var violations validation.Violations
		violations.Add("body", "invalid_json", "Request body must be a valid JSON object")
		response.ValidationError(c, violations)
		return
	}
	req, violations := ParseUpdate(req)
	if !violations.Empty() {
		response.ValidationError(c, violations)
		return
	}
	c.Set(updateKey, req)
	c.Next()
}

func (h *Handler) listUsers(c *gin.Context) {
	page := c.MustGet(pageKey).(pagination.Request)
	res, err := h.service.List(c.Request.Context(), page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, gin.H{"users": res.Data, "pagination": res.Pagination})
}

func (h *Handler) searchUsers(c *gin.Context) {
	search := c.MustGet(searchKey).(SearchRequest)
	page := c.MustGet(pageKey).(pagination.Request)
	res, err := h.service.Search(c.Request.Context(), search, page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, gin.H{"users": res.Data, "query": res.Query, "pagination": res.Pagination})
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, gin.H{"stats": stats})
}

func (h *Handler) getMe(c *gin.Context) {
	usr, err := h.service.GetCurrent(c.Request.Context(), response.UserIDFromContext(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, gin.H{"user": usr})
}

func (h *Handler) getUser(c *gin.Context) {
	usr, err := h.service.GetByID(c.Request.Context(), c.GetString(idKey))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, gin.H{"user": usr})
}

func (h *Handler) updateUser(c *gin.Context) {
	req := c.MustGet(updateKey).(UpdateUserRequest)
	usr, err := h.service.Update(c.Request.Context(), c.GetString(idKey), response.UserIDFromContext(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OKMessage(c, "User updated successfully", gin.H{"user": usr})
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.GetString(idKey), response.UserIDFromContext(c)); err != nil {
		h.handleError(c, err)
		return
	}
	response.OKMessage(c, "User account deleted successfully", nil)
}

// handleError records err on the context for the logging middleware and
// writes the mapped failure envelope.
func (h *Handler) handleError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	_ = c.Error(appErr)
	response.Error(c, appErr, h.verbose)
}
