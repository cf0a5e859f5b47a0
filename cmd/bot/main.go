package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"loot-brawl/server/internal/predict"
	"loot-brawl/server/internal/proto"
)

type botClient struct {
	name    string
	conn    *websocket.Conn
	inbox   chan json.RawMessage
	done    chan error
	writeMu sync.Mutex
}

func main() {
	wsURL := flag.String("ws", "ws://localhost:8080/ws", "game server websocket url")
	roomID := flag.String("room", "bots", "room to create or join")
	clientCount := flag.Int("clients", 2, "number of bot clients")
	duration := flag.Duration("duration", 90*time.Second, "how long to play before giving up")
	flag.Parse()

	if *clientCount < 1 {
		fmt.Println("clients must be >= 1")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup
	for index := 0; index < *clientCount; index++ {
		name := fmt.Sprintf("bot-%d", index+1)
		client, err := newBotClient(ctx, *wsURL, name)
		if err != nil {
			fail(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer client.close()
			if err := client.play(ctx, *roomID); err != nil && ctx.Err() == nil {
				fmt.Printf("%s: %v\n", client.name, err)
			}
		}()
	}
	wg.Wait()

	fmt.Println("bot: session complete")
}

func newBotClient(ctx context.Context, wsURL, name string) (*botClient, error) {
	conn, err := dialWithRetry(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	client := &botClient{
		name:  name,
		conn:  conn,
		inbox: make(chan json.RawMessage, 256),
		done:  make(chan error, 1),
	}
	go client.readLoop()
	return client, nil
}

func (c *botClient) close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *botClient) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.done <- err
			close(c.done)
			return
		}
		select {
		case c.inbox <- payload:
		default:
		}
	}
}

func (c *botClient) send(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// play joins the room and runs a wander-and-fight loop until the match ends
// or the context expires.
func (c *botClient) play(ctx context.Context, roomID string) error {
	if err := c.send(proto.ClientMessage{
		Type:   proto.TypeCreateOrJoin,
		RoomID: roomID,
		Name:   c.name,
	}); err != nil {
		return err
	}

	session, err := c.waitForAck(ctx, roomID)
	if err != nil {
		return err
	}

	frame := time.NewTicker(50 * time.Millisecond)
	defer frame.Stop()
	retarget := time.NewTicker(time.Second)
	defer retarget.Stop()
	skills := time.NewTicker(4 * time.Second)
	defer skills.Stop()

	ax := randomAxis()
	ay := randomAxis()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-c.done:
			if err != nil {
				return err
			}
			return fmt.Errorf("connection closed")
		case payload := <-c.inbox:
			over, err := c.handleMessage(session, payload)
			if err != nil {
				return err
			}
			if over {
				return nil
			}
		case <-retarget.C:
			ax = randomAxis()
			ay = randomAxis()
		case <-skills.C:
			if msg, ok := session.UseSkill(randomSkill()); ok {
				if err := c.send(msg); err != nil {
					return err
				}
			}
		case now := <-frame.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := c.send(session.Step(ax, ay, dt)); err != nil {
				return err
			}
			session.RenderStep()
			if msg, ok := session.PickupCandidate(); ok {
				if err := c.send(msg); err != nil {
					return err
				}
			}
		}
	}
}

func (c *botClient) waitForAck(ctx context.Context, roomID string) (*predict.Session, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-c.done:
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("connection closed")
		case payload := <-c.inbox:
			var head struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(payload, &head) != nil || head.Type != proto.TypeJoinAck {
				continue
			}
			var ack proto.JoinAck
			if err := json.Unmarshal(payload, &ack); err != nil {
				return nil, err
			}
			if !ack.OK {
				return nil, fmt.Errorf("join rejected: %s", ack.Error)
			}
			return predict.NewSession(roomID, ack), nil
		}
	}
}

func (c *botClient) handleMessage(session *predict.Session, payload json.RawMessage) (over bool, err error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return false, nil
	}
	switch head.Type {
	case proto.TypeState:
		var state proto.StateMessage
		if json.Unmarshal(payload, &state) == nil {
			session.ApplySnapshot(state)
		}
	case proto.TypePlayerJoined:
		var msg proto.PlayerJoinedMessage
		if json.Unmarshal(payload, &msg) == nil {
			session.HandlePlayerJoined(msg)
		}
	case proto.TypePlayerLeft:
		var msg proto.PlayerLeftMessage
		if json.Unmarshal(payload, &msg) == nil {
			session.HandlePlayerLeft(msg)
		}
	case proto.TypeLootSpawn:
		var msg proto.LootSpawnMessage
		if json.Unmarshal(payload, &msg) == nil {
			session.HandleLootSpawn(msg)
		}
	case proto.TypeLootRemove:
		var msg proto.LootRemoveMessage
		if json.Unmarshal(payload, &msg) == nil {
			session.HandleLootRemove(msg)
		}
	case proto.TypeGameOver:
		var msg proto.GameOverMessage
		if json.Unmarshal(payload, &msg) == nil {
			if msg.Winner != nil {
				fmt.Printf("%s: game over, winner %s\n", c.name, msg.Winner.Name)
			} else {
				fmt.Printf("%s: game over, draw\n", c.name)
			}
		}
		return true, nil
	}
	return false, nil
}

func randomAxis() float64 {
	return float64(rand.IntN(3) - 1)
}

func randomSkill() string {
	switch rand.IntN(3) {
	case 0:
		return proto.SkillDamage
	case 1:
		return proto.SkillSpeed
	default:
		return proto.SkillDefend
	}
}

func dialWithRetry(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		return nil, fmt.Errorf("invalid ws url: %s", wsURL)
	}
	var lastErr error
	for attempt := 0; attempt < 12; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(180 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func fail(err error) {
	fmt.Println(err.Error())
	os.Exit(1)
}
