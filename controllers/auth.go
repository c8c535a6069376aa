package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"retail-sales/logger"
	"retail-sales/models"
	"retail-sales/store"
	"retail-sales/utils"
)

type UserStore interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

var validate = validator.New()

// Auth handles signup, login and the session check behind the frontend's route gate.
type Auth struct {
	users    UserStore
	tokens   *utils.TokenIssuer
	log      logger.Logger
	hashCost int
}

func NewAuth(users UserStore, tokens *utils.TokenIssuer, log logger.Logger) *Auth {
	return &Auth{users: users, tokens: tokens, log: log, hashCost: bcrypt.DefaultCost}
}

func (a *Auth) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := a.users.Ping(ctx); err != nil {
		a.log.Warn("signup: users store unavailable", map[string]interface{}{"error": err})
		return unavailable(c)
	}

	var in models.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name, email, and password are required"})
	}
	if err := validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": signupMessage(err)})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.hashCost)
	if err != nil {
		a.log.Error("signup: hash password", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error during signup"})
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User already exists with this email"})
		}
		a.log.Error("signup: create user", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error during signup"})
	}

	token, err := a.tokens.GenerateJWTToken(user.ID)
	if err != nil {
		a.log.Error("signup: token generation", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Token generation failed"})
	}
	a.tokens.SetJWTCookie(c, token)

	a.log.Info("user signed up", map[string]interface{}{"user_id": user.ID})
	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{Token: token, User: *user})
}

func (a *Auth) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := a.users.Ping(ctx); err != nil {
		a.log.Warn("login: users store unavailable", map[string]interface{}{"error": err})
		return unavailable(c)
	}

	var in models.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, err := a.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return invalidCredentials(c)
		}
		a.log.Error("login: lookup user", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error during login"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return invalidCredentials(c)
	}

	token, err := a.tokens.GenerateJWTToken(user.ID)
	if err != nil {
		a.log.Error("login: token generation", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Token generation failed"})
	}
	a.tokens.SetJWTCookie(c, token)

	return c.JSON(models.AuthResponse{Token: token, User: *user})
}

// Me returns the account behind the token set by JWTMiddleware.
func (a *Auth) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token is not valid"})
	}

	user, err := a.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		a.log.Error("me: lookup user", map[string]interface{}{"error": err, "user_id": userID})
		return unavailable(c)
	}
	return c.JSON(fiber.Map{"user": user})
}

func signupMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input"
	}
	switch verrs[0].Field() {
	case "Email":
		return "Invalid email format"
	case "Password":
		return "Password must be at least 6 characters"
	case "Name":
		return "Name must be at most 100 characters"
	}
	return "Invalid input"
}

func unavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Database connection unavailable"})
}

func invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
}
