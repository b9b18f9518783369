package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	baseURL   = flag.String("base", "http://localhost:7777", "http base url")
	wsURL     = flag.String("ws", "ws://localhost:7777/ws", "websocket url")
	pairCount = flag.Int("pairs", 50, "number of user pairs")
	msgCount  = flag.Int("messages", 20, "messages per user")
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type session struct {
	client *http.Client
	userID string
}

var received atomic.Int64

func main() {
	flag.Parse()
	log.Printf("starting load test: %d pairs, %d messages each", *pairCount, *msgCount)

	var wg sync.WaitGroup
	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()

	log.Printf("load test complete, %d messages received", received.Load())
}

func runPair(pairID int) {
	a, err := signupAndLogin(fmt.Sprintf("pair%d-a@loadtest.dev", pairID))
	if err != nil {
		log.Printf("pair %d: user a auth failed: %v", pairID, err)
		return
	}
	b, err := signupAndLogin(fmt.Sprintf("pair%d-b@loadtest.dev", pairID))
	if err != nil {
		log.Printf("pair %d: user b auth failed: %v", pairID, err)
		return
	}

	// A shows interest, B accepts; then they chat.
	requestID, err := sendRequest(a, b.userID)
	if err != nil {
		log.Printf("pair %d: send request failed: %v", pairID, err)
		return
	}
	if err := review(b, requestID); err != nil {
		log.Printf("pair %d: review failed: %v", pairID, err)
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go chat(&wsWg, a, b.userID)
	go chat(&wsWg, b, a.userID)
	wsWg.Wait()
}

func signupAndLogin(email string) (*session, error) {
	jar, _ := cookiejar.New(nil)
	s := &session{client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}

	body := map[string]any{
		"firstName": "Load",
		"lastName":  "Tester",
		"email":     email,
		"password":  "password123",
	}
	// Signup may 409 on reruns; login is the call that matters.
	_, _ = s.post("/api/signup", body)

	data, err := s.post("/api/login", map[string]string{"email": email, "password": "password123"})
	if err != nil {
		return nil, err
	}

	var u struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	s.userID = u.ID
	return s, nil
}

func sendRequest(s *session, toUserID string) (string, error) {
	data, err := s.post("/api/request/send/interested/"+toUserID, nil)
	if err != nil {
		return "", err
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	return req.ID, nil
}

func review(s *session, requestID string) error {
	_, err := s.post("/api/request/review/accepted/"+requestID, nil)
	return err
}

func chat(wg *sync.WaitGroup, s *session, targetID string) {
	defer wg.Done()

	dialer := websocket.Dialer{Jar: s.client.Jar}
	conn, _, err := dialer.Dial(*wsURL, nil)
	if err != nil {
		log.Printf("ws dial failed: %v", err)
		return
	}
	defer conn.Close()

	join := map[string]string{"type": "joinChat", "userId": s.userID, "targetUserId": targetID}
	if err := conn.WriteJSON(join); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(30 * time.Second)
		for n := 0; n < *msgCount; n++ {
			conn.SetReadDeadline(deadline)
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			countReceived()
		}
	}()

	for i := 0; i < *msgCount; i++ {
		msg := map[string]string{
			"type":         "sendMessage",
			"userId":       s.userID,
			"targetUserId": targetID,
			"text":         fmt.Sprintf("message %d", i),
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	<-done
}

func countReceived() {
	received.Add(1)
}

func (s *session) post(path string, body any) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	resp, err := s.client.Post(*baseURL+path, "application/json", &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%s: %s (status %d)", path, env.Message, resp.StatusCode)
	}
	return env.Data, nil
}
