package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Kardex-api/internal/application/dto"
	pkgjwt "github.com/jhoicas/Kardex-api/pkg/jwt"
)

const localOperatorID = "operator_id"

// AuthMiddleware valida el Bearer token y carga el operador en locals.
// Las rutas de mutación del kardex siempre van detrás de este middleware.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token requerido"})
		}
		operatorID, err := pkgjwt.Parse(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
		}
		c.Locals(localOperatorID, operatorID)
		return c.Next()
	}
}

// GetOperatorID devuelve el id del operador autenticado (vacío si no hay).
func GetOperatorID(c *fiber.Ctx) string {
	if v, ok := c.Locals(localOperatorID).(string); ok {
		return v
	}
	return ""
}
