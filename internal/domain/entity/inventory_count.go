package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un conteo físico.
// draft -> in_progress -> completed | cancelled. No hay transiciones que
// salgan de completed ni de cancelled.
const (
	CountStatusDraft      = "draft"
	CountStatusInProgress = "in_progress"
	CountStatusCompleted  = "completed"
	CountStatusCancelled  = "cancelled"
)

// Alcance del conteo.
const (
	CountTypeFull    = "full"    // todos los productos con nivel en la ubicación
	CountTypePartial = "partial" // lista de productos indicada por el caller
)

// InventoryCount es una sesión de conteo físico contra una ubicación.
// El conteo en sí nunca muta niveles de stock; solo al finalizar se emiten
// ajustes a través del servicio de mutaciones, con Reference = ID del conteo.
type InventoryCount struct {
	ID              string
	Name            string
	Type            string // full | partial
	LocationID      string
	Status          string
	CreatedBy       string
	TotalProducts   int
	CountedProducts int
	TotalVariances  int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Terminal indica si el conteo llegó a un estado final.
func (c *InventoryCount) Terminal() bool {
	return c.Status == CountStatusCompleted || c.Status == CountStatusCancelled
}

// Estados de una línea de conteo.
const (
	CountItemPending  = "pending"  // aún sin contar
	CountItemCounted  = "counted"  // cantidad física registrada
	CountItemVerified = "verified" // revisada por supervisor
)

// InventoryCountItem es una línea de conteo: la foto del sistema al abrir la
// sesión y la cantidad física registrada. Inmutable una vez que el conteo
// padre llega a completed.
type InventoryCountItem struct {
	CountID          string
	ProductID        string
	LocationID       string
	SystemQuantity   decimal.Decimal // foto al crear el conteo
	PhysicalQuantity decimal.Decimal
	Variance         decimal.Decimal // PhysicalQuantity - SystemQuantity
	VarianceValue    decimal.Decimal // Variance * UnitCost
	UnitCost         decimal.Decimal
	Status           string
}
