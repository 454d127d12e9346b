package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

// Event types pushed to manager/HR dashboards.
const (
	EventApplicationSubmitted = "application_submitted"
	EventApplicationStatus    = "application_status"
	EventOnboardingPhase      = "onboarding_phase"
	EventComplianceOverdue    = "compliance_overdue"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// client carries the scope fixed at connect time. HR sees every property;
// a manager sees only the properties they were assigned when connecting.
type client struct {
	role       string
	properties map[uint]bool
}

// Hub holds dashboard websocket clients and their property scope.
type Hub struct {
	clients map[*websocket.Conn]client
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]client),
}

// RegisterClient adds a dashboard connection. propertyIDs is ignored for
// HR; for managers it is the allow-list for every event on this conn.
func RegisterClient(conn *websocket.Conn, role string, propertyIDs []uint) {
	scope := make(map[uint]bool, len(propertyIDs))
	for _, id := range propertyIDs {
		scope[id] = true
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = client{role: role, properties: scope}
}

func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

func BroadcastApplicationSubmitted(app models.JobApplication) {
	broadcast(Message{Event: EventApplicationSubmitted, Data: app}, app.PropertyID)
}

func BroadcastApplicationStatus(app models.JobApplication) {
	broadcast(Message{Event: EventApplicationStatus, Data: app}, app.PropertyID)
}

func BroadcastOnboardingPhase(session models.OnboardingSession, propertyID uint) {
	broadcast(Message{Event: EventOnboardingPhase, Data: session}, propertyID)
}

func BroadcastComplianceOverdue(deadline models.ComplianceDeadline, propertyID uint) {
	broadcast(Message{Event: EventComplianceOverdue, Data: deadline}, propertyID)
}

// broadcast fans out one event to clients in scope for propertyID. Events
// never cross a property boundary for manager connections.
func broadcast(msg Message, propertyID uint) {
	payload, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("events: marshal %s failed: %v", msg.Event, err)
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for conn, cl := range hub.clients {
		if cl.role != models.RoleHR && !cl.properties[propertyID] {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}
