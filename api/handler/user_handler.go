package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ytempire/api/middleware"
	"ytempire/internal/dto"
	"ytempire/internal/entity"
	"ytempire/internal/repository"
	"ytempire/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	errAuthRequired  = errors.New("Authentication required")
	errInvalidUserID = errors.New("Invalid user id")
)

type UserHandler struct {
	Service  *service.UserService
	Validate *validator.Validate
}

func NewUserHandler(svc *service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{Service: svc, Validate: validate}
}

func (h *UserHandler) List(c echo.Context) error {
	filter, err := parseUserFilter(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	page, err := h.Service.List(c.Request().Context(), filter)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: dto.UserListResponseFromPage(page)})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	user, err := h.Service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: map[string]any{"user": dto.UserResponseFromEntity(user)}})
}

// PublicProfile runs behind optional auth. The owner and admins also get the
// full account.
func (h *UserHandler) PublicProfile(c echo.Context) error {
	viewer, _ := middleware.UserFromContext(c)
	user, full, err := h.Service.PublicProfile(c.Request().Context(), viewer, c.Param("username"))
	if err != nil {
		return writeServiceError(c, err)
	}
	data := map[string]any{"profile": dto.PublicProfileResponseFromEntity(user)}
	if full {
		data["user"] = dto.UserResponseFromEntity(user)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: data})
}

func (h *UserHandler) Update(c echo.Context) error {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errAuthRequired)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	var req dto.UpdateProfileRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidBody)
	}
	if err := validateStruct(h.Validate, req); err != nil {
		return writeValidationError(c, err)
	}
	user, err := h.Service.UpdateProfile(c.Request().Context(), actor, id, req.ToUpdate(), requestMeta(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: map[string]any{"user": dto.UserResponseFromEntity(user)}})
}

func (h *UserHandler) UpdateSettings(c echo.Context) error {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errAuthRequired)
	}
	var req dto.UpdateSettingsRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidBody)
	}
	if err := validateStruct(h.Validate, req); err != nil {
		return writeValidationError(c, err)
	}
	user, err := h.Service.UpdateSettings(c.Request().Context(), actor, req.ToUpdate(), requestMeta(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: map[string]any{"user": dto.UserResponseFromEntity(user)}})
}

// Delete suspends the account; rows are never removed.
func (h *UserHandler) Delete(c echo.Context) error {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errAuthRequired)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if err := h.Service.Suspend(c.Request().Context(), actor, id, requestMeta(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "User account suspended"})
}

// RevokeSessions signs the user out everywhere; the account stays active.
func (h *UserHandler) RevokeSessions(c echo.Context) error {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errAuthRequired)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if err := h.Service.RevokeSessions(c.Request().Context(), actor, id, requestMeta(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "User sessions revoked"})
}

func parseUserFilter(c echo.Context) (repository.UserFilter, error) {
	filter := repository.UserFilter{
		Search:      strings.TrimSpace(c.QueryParam("search")),
		AccountType: entity.AccountType(c.QueryParam("accountType")),
		Status:      entity.AccountStatus(c.QueryParam("status")),
	}
	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, errors.New("page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
