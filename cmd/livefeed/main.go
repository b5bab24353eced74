// Command livefeed prints the events of a running server's live websocket.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt string         `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func main() {
	url := flag.String("url", "ws://localhost:8888/api/v1/ws/live", "live feed url")
	initData := flag.String("init-data", os.Getenv("LIVEFEED_INIT_DATA"), "telegram init data used for auth")
	flag.Parse()

	header := http.Header{}
	header.Add("Authorization", "Telegram "+*initData)

	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case message, ok := <-messageQueue:
			if !ok {
				return
			}

			var e event
			if err := json.Unmarshal(message, &e); err != nil {
				log.Printf("Received:\n%s\n", message)
				continue
			}
			out, _ := json.MarshalIndent(e, "", "  ")
			log.Printf("%s\n%s\n", e.Type, out)

		case <-interrupt:
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
