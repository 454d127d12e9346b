package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/events"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware
	},
}

type WSController struct {
	DB *gorm.DB
}

func NewWSController(db *gorm.DB) *WSController {
	return &WSController{DB: db}
}

// Dashboard upgrades an authenticated staff connection and keeps it
// registered with the event hub until it drops. A manager's property
// scope is resolved once at connect time; reconnecting picks up new
// assignments.
func (wc *WSController) Dashboard(c *gin.Context) {
	userID, role := currentStaff(c)

	var propertyIDs []uint
	if role == models.RoleManager {
		ids, err := ManagerPropertyIDs(wc.DB, userID)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
			return
		}
		propertyIDs = ids
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	events.RegisterClient(conn, role, propertyIDs)
	utils.InfoLogger.Printf("dashboard client connected (role=%s)", role)

	defer events.UnregisterClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
