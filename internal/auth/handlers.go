package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// SignupRequest registers a staff member. Attorneys must give a bar number.
type SignupRequest struct {
	Role      string `json:"role" validate:"required,oneof=attorney paralegal admin"`
	Name      string `json:"name" validate:"required,min=2,max=80"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	BarNumber string `json:"bar_number" validate:"required_if=Role attorney,barnum"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserProfileResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name"`
	BarNumber string      `json:"bar_number,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

/* ============================== Handler ================================= */

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

func respondToken(c *fiber.Ctx, status int, u models.User) error {
	token, err := IssueToken(u.ID.String(), string(u.Role), u.Name)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(AuthResponse{
		Token:     token,
		Role:      string(u.Role),
		Name:      u.Name,
		ExpiresAt: time.Now().Add(TokenTTL).UTC(),
	})
}

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a firm staff member (attorney, paralegal or admin)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "email already registered"
// @Router       /signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.BarNumber = strings.TrimSpace(in.BarNumber)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var n int64
	if err := h.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if n > 0 {
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	u := models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.Role(in.Role),
		Name:         in.Name,
		BarNumber:    in.BarNumber,
	}
	if err := h.db.Create(&u).Error; err != nil {
		// lost a race on the unique index
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	}
	return respondToken(c, fiber.StatusCreated, u)
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate a staff member and receive a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Router       /login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.User
	if err := h.db.Where("email = ?", in.Email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		return fiber.ErrInternalServerError
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
	}
	return respondToken(c, fiber.StatusOK, u)
}

/* ================================= Me =================================== */

// @Summary      Current staff member
// @Description  Profile of the authenticated staff member
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	actor := Actor(c)
	if actor.ID == uuid.Nil {
		return fiber.ErrUnauthorized
	}

	var u models.User
	if err := h.db.First(&u, "id = ?", actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrUnauthorized
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(UserProfileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Name:      u.Name,
		BarNumber: u.BarNumber,
		CreatedAt: u.CreatedAt,
	})
}
