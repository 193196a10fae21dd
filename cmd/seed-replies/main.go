package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/indarelin/backoffice/internal/customreplies"
)

// ReplyFile is the seed format: a flat list of custom reply rules.
type ReplyFile struct {
	Replies []customreplies.ReplyInput `json:"replies"`
}

type seeder struct {
	apiURL string
	client *http.Client
	token  string
	out    io.Writer
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: seed-replies <replies.json>")
		fmt.Println("Example: seed-replies cmd/seed-replies/testdata/replies.json")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}
	var file ReplyFile
	if err := json.Unmarshal(data, &file); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := &seeder{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		out:    os.Stdout,
	}
	if err := s.login(ctx, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	created, failed := s.seed(ctx, file.Replies)
	fmt.Printf("\nSeeding complete: %d created, %d failed\n", created, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func (s *seeder) login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := s.do(ctx, "/admin/login", payload, http.StatusOK, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return errors.New("login response carried no token")
	}
	s.token = resp.Token
	return nil
}

func (s *seeder) seed(ctx context.Context, replies []customreplies.ReplyInput) (created, failed int) {
	fmt.Fprintf(s.out, "Seeding %d custom replies into %s\n", len(replies), s.apiURL)
	for i, in := range replies {
		payload, err := json.Marshal(in)
		if err != nil {
			fmt.Fprintf(s.out, "  [%d] marshal error: %v\n", i+1, err)
			failed++
			continue
		}
		var reply customreplies.Reply
		if err := s.do(ctx, "/admin/custom-replies", payload, http.StatusCreated, &reply); err != nil {
			fmt.Fprintf(s.out, "  [%d] failed: %v\n", i+1, err)
			failed++
			continue
		}
		fmt.Fprintf(s.out, "  [%d] created %s\n", i+1, reply.ID)
		created++
	}
	return created, failed
}

func (s *seeder) do(ctx context.Context, path string, payload []byte, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
