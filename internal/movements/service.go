package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, limit, offset int) ([]Movement, error)
	ListForProduct(ctx context.Context, productID string, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts stock movements and keeps product quantities consistent.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// List returns recent movements.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Movement, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListForProduct returns a product's movement history.
func (s *Service) ListForProduct(ctx context.Context, productID string, limit int) ([]Movement, error) {
	return s.repo.ListForProduct(ctx, productID, limit)
}

// Post records a movement and applies its effect on the product's stock in
// one transaction. Exits decrement quantity, entries increment it, and
// transfers relocate the batch without changing the quantity.
func (s *Service) Post(ctx context.Context, input MovementInput, actor uuid.UUID, idempotencyKey string) (uuid.UUID, error) {
	if !input.Type.Valid() {
		return uuid.Nil, fmt.Errorf("movements: unknown movement type %q", input.Type)
	}
	if input.Quantity <= 0 {
		return uuid.Nil, ErrInvalidQuantity
	}
	switch input.Type {
	case TypeEntry:
		if !input.ToLocationID.Valid {
			return uuid.Nil, ErrLocationRequired
		}
	case TypeExit:
		if !input.FromLocationID.Valid {
			return uuid.Nil, ErrLocationRequired
		}
	case TypeTransfer:
		if !input.FromLocationID.Valid || !input.ToLocationID.Valid {
			return uuid.Nil, ErrLocationRequired
		}
		if input.FromLocationID.UUID == input.ToLocationID.UUID {
			return uuid.Nil, ErrSameLocation
		}
	}

	insertedKey := false
	if s.idempotency != nil && idempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "movements"); err != nil {
			return uuid.Nil, err
		}
		insertedKey = true
	}

	var movementID uuid.UUID
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		qty, location, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		newQty := qty
		newLocation := location
		switch input.Type {
		case TypeEntry:
			newQty = qty + input.Quantity
			newLocation = input.ToLocationID
		case TypeExit:
			newQty = qty - input.Quantity
			if newQty < 0 {
				return ErrNegativeStock
			}
		case TypeTransfer:
			newLocation = input.ToLocationID
		}
		if err := tx.SetProductStock(ctx, input.ProductID, newQty, newLocation); err != nil {
			return err
		}
		movementID, err = tx.InsertMovement(ctx, input, actor)
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return uuid.Nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   fmt.Sprintf("movements.%s", input.Type),
			Entity:   "product_movement",
			EntityID: movementID.String(),
			Meta: map[string]any{
				"product_id": input.ProductID,
				"quantity":   input.Quantity,
			},
		})
	}
	return movementID, nil
}
