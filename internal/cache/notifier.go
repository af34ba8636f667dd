package cache

import (
	"context"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// CartNotifier diffuse le nombre d'articles du panier sur le canal
// cart:<userID>, écouté par les websockets ouverts sur toutes les instances.
type CartNotifier struct {
	client *redis.Client
}

func NewCartNotifier(client *redis.Client) *CartNotifier {
	return &CartNotifier{client: client}
}

func (n *CartNotifier) CartChanged(ctx context.Context, userID string, count int) error {
	return n.client.Publish(ctx, cartChannel(userID), strconv.Itoa(count)).Err()
}

// Subscribe renvoie les compteurs publiés pour userID jusqu'à l'annulation de ctx.
func (n *CartNotifier) Subscribe(ctx context.Context, userID string) <-chan int {
	out := make(chan int)
	sub := n.client.Subscribe(ctx, cartChannel(userID))

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				count, err := strconv.Atoi(msg.Payload)
				if err != nil {
					log.Printf("⚠️ Message panier invalide sur %s: %q", msg.Channel, msg.Payload)
					continue
				}
				select {
				case out <- count:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func cartChannel(userID string) string {
	return "cart:" + userID
}
