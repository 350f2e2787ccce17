package http

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/pkg/config"
	pkgjwt "github.com/jhoicas/Kardex-api/pkg/jwt"
)

// AuthHandler emite tokens para el operador de API sembrado por configuración.
// No hay gestión de usuarios en este subsistema: la autenticación de la
// aplicación completa vive en otro servicio.
type AuthHandler struct {
	jwtCfg config.JWTConfig
}

// NewAuthHandler construye el handler.
func NewAuthHandler(jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{jwtCfg: jwtCfg}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Login godoc
// @Summary      Login del operador de API
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  loginRequest  true  "user, password"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if h.jwtCfg.OperatorPasswordHash == "" || in.User != h.jwtCfg.OperatorUser {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.jwtCfg.OperatorPasswordHash), []byte(in.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	}
	token, err := pkgjwt.Generate(h.jwtCfg.Secret, in.User, h.jwtCfg.Issuer, h.jwtCfg.Expiration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(fiber.Map{"token": token})
}
