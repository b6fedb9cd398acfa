package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/propwise/internal/rag"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleIngestWebSocket reads a single {"urls": [...]} message, streams the
// ingestion events back and closes the connection after the terminal event.
func (s *Server) handleIngestWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	var req ingestRequest
	if err := conn.ReadJSON(&req); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Printf("server: websocket read: %v", err)
		}
		conn.WriteJSON(errorResponse{Error: "invalid message format"})
		closeNormally(conn)
		return
	}

	s.pipeline.Ingest(r.Context(), req.URLs, func(ev rag.Event) {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("server: websocket write: %v", err)
		}
	})
	closeNormally(conn)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Printf("server: websocket close: %v", err)
	}
}
