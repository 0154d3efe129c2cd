package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
)

// Event types
const (
	EventOrderCreated  = "order_created"
	EventOrderStatus   = "order_status"
	EventBillRequested = "bill_requested"
	EventSessionClosed = "session_closed"
	EventAnnouncement  = "announcement"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// KDSHub holds every connected kitchen display client.
type KDSHub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var kdsHub = KDSHub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient -> adds a connection with the role of its user
func RegisterClient(conn *websocket.Conn, role string) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	kdsHub.clients[conn] = role
}

// UnregisterClient -> removes and closes a connection
func UnregisterClient(conn *websocket.Conn) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	if _, ok := kdsHub.clients[conn]; ok {
		delete(kdsHub.clients, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected displays.
func ClientCount() int {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	return len(kdsHub.clients)
}

// BroadcastOrderCreated -> a new order reached the kitchen
func BroadcastOrderCreated(order models.Order) {
	broadcast(Message{
		Event: EventOrderCreated,
		Data:  order,
	})
}

// BroadcastOrderStatus -> an order moved through the kitchen workflow
func BroadcastOrderStatus(order models.Order) {
	broadcast(Message{
		Event: EventOrderStatus,
		Data: map[string]interface{}{
			"id":     order.ID,
			"status": order.Status,
		},
	})
}

// BroadcastBillRequested -> a table asked for its bill
func BroadcastBillRequested(session models.GuestSession) {
	broadcast(Message{
		Event: EventBillRequested,
		Data: map[string]interface{}{
			"session_id":   session.ID,
			"guest_name":   session.GuestName,
			"table_name":   session.TableName,
			"total_amount": session.TotalAmount,
		},
	})
}

// BroadcastSessionClosed -> a table paid and left
func BroadcastSessionClosed(session models.GuestSession) {
	broadcast(Message{
		Event: EventSessionClosed,
		Data: map[string]interface{}{
			"session_id": session.ID,
			"table_name": session.TableName,
		},
	})
}

func BroadcastAnnouncement(announcement models.Announcement) {
	broadcast(Message{
		Event: EventAnnouncement,
		Data:  announcement,
	})
}

// broadcast -> writes msg to every client and drops the ones that fail
func broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	utils.InfoLogger.Debugf("Broadcasting %s to %d clients", msg.Event, len(kdsHub.clients))

	for conn, role := range kdsHub.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending %s to %s client: %v", msg.Event, role, err)
			delete(kdsHub.clients, conn)
			conn.Close()
		}
	}
}
