package user

import (
	"context"
	"log"
	"net/http"
	"time"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// CartSubscriber fournit le flux des compteurs de panier d'un utilisateur.
type CartSubscriber interface {
	Subscribe(ctx context.Context, userID string) <-chan int
}

type CartSocket struct {
	cart     *shop.Cart
	sub      CartSubscriber
	upgrader websocket.Upgrader
}

// NewCartSocket n'accepte que les origines autorisées par CORS. Une liste
// vide accepte toutes les origines.
func NewCartSocket(cart *shop.Cart, sub CartSubscriber, allowedOrigins []string) *CartSocket {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &CartSocket{
		cart: cart,
		sub:  sub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

type cartEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// 🔌 GET /api/cart/ws
// Envoie le nombre d'articles à la connexion puis à chaque modification.
func (h *CartSocket) Serve(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := handlers.Context(c)
	lines, err := h.cart.Get(ctx, userID)
	cancel()
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	streamCtx, stop := context.WithCancel(context.Background())
	defer stop()
	counts := h.sub.Subscribe(streamCtx, userID.Hex())

	// Lecture : seule la fermeture côté client nous intéresse.
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := write(conn, cartEvent{Type: "connected", Count: shop.Count(lines)}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-streamCtx.Done():
			return
		case count, ok := <-counts:
			if !ok {
				return
			}
			if err := write(conn, cartEvent{Type: "cart_updated", Count: count}); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			// Ping pour garder la connexion active
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
