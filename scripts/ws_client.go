// Package main runs a demo WebSocket client: it submits a random instance and
// prints the run's progress events until it finishes.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/websocket"

	"cvrpsolver/internal/model"
)

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	rng := rand.New(rand.NewSource(1))
	in := model.Instance{Name: "demo", Vehicles: 5, Capacity: 50, Customers: []model.Customer{{X: 50, Y: 50}}}
	for i := 0; i < 40; i++ {
		in.Customers = append(in.Customers, model.Customer{Demand: 1 + rng.Intn(9), X: rng.Float64() * 100, Y: rng.Float64() * 100})
	}
	body, _ := json.Marshal(model.SolveRequest{Instance: in, Options: model.SolverOptions{Iterations: 500}})
	resp, err := http.Post(base+"/v1/solve", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var accepted struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	if accepted.RunID == "" {
		log.Fatalf("solve not accepted: %s", resp.Status)
	}
	log.Printf("Run ID: %s", accepted.RunID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + accepted.RunID + "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	for {
		var evt event
		if err := c.ReadJSON(&evt); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}
		switch evt.Type {
		case "run.progress":
			log.Printf("iter=%v best=%v current=%v temp=%v", evt.Data["iteration"], evt.Data["bestCost"], evt.Data["currentCost"], evt.Data["temperature"])
		default:
			log.Printf("%s %v", evt.Type, evt.Data)
		}
	}
}
