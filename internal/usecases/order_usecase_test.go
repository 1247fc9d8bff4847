package usecases

import (
	"testing"
	"zapdesk/internal/entities"

	"github.com/stretchr/testify/assert"
)

func TestAddPixKeyRejectsBadInput(t *testing.T) {
	u := &OrderUsecase{}

	err := u.AddPixKey("tenant_1", &entities.PixKey{KeyType: "iban", KeyValue: "x"})
	assert.ErrorContains(t, err, "invalid pix key type")

	err = u.AddPixKey("tenant_1", &entities.PixKey{KeyType: entities.PixEmail})
	assert.ErrorContains(t, err, "value is required")
}

func TestOrderTransitions(t *testing.T) {
	allowed := func(from, to string) bool {
		for _, s := range orderTransitions[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	assert.True(t, allowed(entities.OrderPending, entities.OrderPaid))
	assert.True(t, allowed(entities.OrderPaid, entities.OrderShipped))
	assert.True(t, allowed(entities.OrderShipped, entities.OrderDelivered))
	assert.True(t, allowed(entities.OrderPending, entities.OrderCancelled))

	// No skipping ahead, no leaving terminal states.
	assert.False(t, allowed(entities.OrderPending, entities.OrderDelivered))
	assert.False(t, allowed(entities.OrderDelivered, entities.OrderPaid))
	assert.False(t, allowed(entities.OrderCancelled, entities.OrderPending))
}
