package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"loot-brawl/server/internal/proto"
)

// wsConn adapts a gorilla connection to the room Conn seam, serializing
// writes and applying a deadline per message.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// NewWSHandler upgrades connections and runs the per-session read loop. Each
// session routes messages to the room it joined; gameplay messages arriving
// before a successful join, or after the session's room is gone, are treated
// as stale and dropped. A malformed message is discarded, never fatal.
func NewWSHandler(reg *Registry) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		session := &wsConn{conn: conn}

		var room *Room
		var playerID string
		defer func() {
			if room != nil {
				room.Leave(playerID)
			}
			conn.Close()
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg proto.ClientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Printf("discarding malformed message: %v", err)
				continue
			}

			switch msg.Type {
			case proto.TypeCreateOrJoin:
				if room != nil && !room.isClosed() {
					refusal, err := json.Marshal(proto.JoinAck{Type: proto.TypeJoinAck, OK: false, Error: "already in a room"})
					if err != nil {
						log.Printf("failed to marshal join ack: %v", err)
						return
					}
					if err := session.Send(refusal); err != nil {
						return
					}
					continue
				}
				room, playerID = nil, ""
				ack, joined, id := reg.CreateOrJoin(msg.RoomID, msg.Name, session)
				data, err := json.Marshal(ack)
				if err != nil {
					log.Printf("failed to marshal join ack: %v", err)
					return
				}
				if err := session.Send(data); err != nil {
					if joined != nil {
						joined.Leave(id)
					}
					return
				}
				if joined != nil {
					room, playerID = joined, id
				}
			case proto.TypeInput:
				if room == nil {
					continue
				}
				room.ApplyInput(playerID, msg)
			case proto.TypeUseSkill:
				if room == nil {
					continue
				}
				room.UseSkill(playerID, msg.Skill)
			case proto.TypePickupLoot:
				if room == nil {
					continue
				}
				room.PickupLoot(playerID, msg.LootID)
			default:
				log.Printf("unknown message type %q", msg.Type)
			}
		}
	}
}
