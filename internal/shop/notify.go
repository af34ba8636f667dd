package shop

import (
	"context"
	"log"
	"time"

	"fertilizer_back_end/internal/models"
)

// Effets de bord asynchrones : ils ne font jamais échouer la requête.
const sideEffectTimeout = 10 * time.Second

type nopNotifier struct{}

func (nopNotifier) CartChanged(context.Context, string, int) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type nopMailer struct{}

func (nopMailer) SendOrderConfirmation(context.Context, string, *models.Order) error { return nil }

// background lance fn dans une goroutine avec son propre délai,
// détachée de la requête HTTP.
func background(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("⚠️ %s: %v", what, err)
		}
	}()
}
