package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-directory-service/internal/usecase/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/logger"
)

// Success messages
const (
	MsgUserCreated = "user created successfully"
	MsgUserByID    = "user found by id"
	MsgUserByEmail = "user found by email"
	MsgUsersByName = "users found by name"
	MsgUsersListed = "list of users"
	MsgUserDeleted = "user deleted successfully"
	MsgUserUpdated = "user updated successfully"
)

const (
	errInvalidID     = "user id must be a valid number"
	errInvalidBody   = "invalid request body"
	errListingFailed = "failed to fetch users"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
	State string `json:"state"`
	City  string `json:"city"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// Omitted state or city leave the stored value unchanged; age is ignored.
type UpdateUserRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Age   *int    `json:"age"`
	State *string `json:"state"`
	City  *string `json:"city"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
	State string `json:"state"`
	City  string `json:"city"`
}

// UserEnvelope wraps a single user with a message.
type UserEnvelope struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// UsersEnvelope wraps a list of users with a message.
type UsersEnvelope struct {
	Message string         `json:"message"`
	Users   []UserResponse `json:"users"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateUser handles POST /user
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidBody})
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
		State: req.State,
		City:  req.City,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserEnvelope{Message: MsgUserCreated, User: toResponse(resp)})
}

// GetUser handles GET /user/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetUserByID(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserEnvelope{Message: MsgUserByID, User: toResponse(resp)})
}

// GetUserByEmail handles GET /user/email/:email
func (h *UserHandler) GetUserByEmail(c *gin.Context) {
	resp, err := h.uc.GetUserByEmail(c.Request.Context(), user.GetUserByEmailRequest{Email: c.Param("email")})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserEnvelope{Message: MsgUserByEmail, User: toResponse(resp)})
}

// SearchUsersByName handles GET /users/name/:name
func (h *UserHandler) SearchUsersByName(c *gin.Context) {
	resp, err := h.uc.SearchUsersByName(c.Request.Context(), user.SearchUsersRequest{Name: c.Param("name")})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UsersEnvelope{Message: MsgUsersByName, Users: toResponses(resp.Users)})
}

// ListUsers handles GET /users. Any failure is reported as 404.
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListAllUsers(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Error("list users failed", zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errListingFailed})
		return
	}

	c.JSON(http.StatusCreated, UsersEnvelope{Message: MsgUsersListed, Users: toResponses(resp.Users)})
}

// UpdateUser handles PUT /user/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid update user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidBody})
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
		State: req.State,
		City:  req.City,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserEnvelope{Message: MsgUserUpdated, User: toResponse(resp)})
}

// DeleteUser handles DELETE /user/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserEnvelope{Message: MsgUserDeleted, User: toResponse(resp)})
}

func (h *UserHandler) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid user id", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidID})
		return 0, false
	}
	return id, true
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	code := pkgerrors.HTTPStatus(err)
	log := logger.WithContext(c.Request.Context(), h.log)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", code), zap.Error(err))
	}

	c.JSON(code, ErrorResponse{Error: pkgerrors.PublicMessage(err)})
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
		State: u.State,
		City:  u.City,
	}
}

func toResponses(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = toResponse(&users[i])
	}
	return out
}
