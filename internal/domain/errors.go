package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrProductNotFound  = errors.New("producto no encontrado")
	ErrLocationNotFound = errors.New("ubicación no encontrada")
	ErrCountNotFound    = errors.New("conteo no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrDuplicate        = errors.New("recurso duplicado")
	ErrUnauthorized     = errors.New("no autorizado")

	// ErrInvariantViolation: el PreviousQuantity de una entrada del libro no
	// coincide con el nivel vivo al momento de aplicar (modificación
	// concurrente o bypass del lock). Fatal para la operación: se aborta sin
	// escrituras parciales y se registra para investigación.
	ErrInvariantViolation = errors.New("violación de invariante del kardex")

	// ErrContended: no se obtuvo el lock por (producto, ubicación) dentro del
	// tiempo límite. Recuperable; el caller puede reintentar con backoff.
	ErrContended = errors.New("recurso en contención, reintente")

	// ErrPartialTransfer: una pierna del traslado quedó aplicada y la
	// reversión compensatoria de la otra también falló. Fatal; nunca se
	// tolera en silencio.
	ErrPartialTransfer = errors.New("traslado parcialmente aplicado")

	// ErrInsufficientStock solo aplica con política estricta
	// (allow_negative_stock = false). En modo permisivo el stock negativo es
	// un estado de negocio válido (venta en contra / backorder).
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrCountState: transición ilegal del ciclo de vida de un conteo
	// (p. ej. registrar cantidades sobre un conteo completado).
	ErrCountState = errors.New("estado de conteo no admite la operación")
)
