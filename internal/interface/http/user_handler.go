package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/interface/middleware"
	"github.com/oksasatya/user-account-service/pkg/response"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

type UserHandler struct {
	Register *application.RegisterUser
	Get      *application.GetUser
	Change   *application.ChangeUser
	Logger   *logrus.Logger
}

func NewUserHandler(register *application.RegisterUser, get *application.GetUser, change *application.ChangeUser, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Register: register, Get: get, Change: change, Logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,account_email"`
	Password string `json:"password" binding:"required"`
}

// changeUserRequest leaves absent fields nil, so only the fields sent are changed.
// Values are not validated at binding: ChangeUser authorizes the initiator first.
type changeUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	State    *string `json:"state"`
	Status   *string `json:"status"`
}

type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Version uint64 `json:"version"`
}

func toUserResponse(rec repository.UserRecord) userResponse {
	return userResponse{ID: rec.ID.String(), Email: rec.Email, State: rec.State, Status: rec.Status, Version: rec.Version}
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	rec, err := h.Register.Execute(c.Request.Context(), application.RegisterUserCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(rec), "user registered", nil)
}

// GetUser handles GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	requester, id, ok := h.ids(c)
	if !ok {
		return
	}
	rec, err := h.Get.Execute(c.Request.Context(), requester, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(rec), "user", nil)
}

// ChangeUser handles PATCH /users/:id on behalf of the authenticated user.
func (h *UserHandler) ChangeUser(c *gin.Context) {
	initiator, id, ok := h.ids(c)
	if !ok {
		return
	}
	var req changeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	cmd := application.ChangeUserCommand{
		InitiatorID: initiator,
		UserID:      id,
		Email:       req.Email,
		Password:    req.Password,
		State:       req.State,
		Status:      req.Status,
	}
	if err := h.Change.Execute(c.Request.Context(), cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	rec, err := h.Get.Execute(c.Request.Context(), initiator, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(rec), "user updated", nil)
}

// ids reads the authenticated user and the :id path parameter.
func (h *UserHandler) ids(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	requester, err := uuid.Parse(c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"id": "must be a valid UUID"})
		return uuid.Nil, uuid.Nil, false
	}
	return requester, id, true
}
