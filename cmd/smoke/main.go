package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxAttempts = 25

type client struct {
	base string
	http *http.Client
}

func (c *client) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func main() {
	base := os.Getenv("BAZAAR_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	email := fmt.Sprintf("smoke-%s@example.com", uuid.NewString())
	creds := map[string]string{"email": email, "password": "smoke-password-1"}

	if code, err := c.call(ctx, http.MethodPost, "/api/auth/register", "", creds, nil); err != nil || code != http.StatusCreated {
		log.Fatalf("register: status=%d err=%v", code, err)
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if code, err := c.call(ctx, http.MethodPost, "/api/auth/login", "", creds, &tokens); err != nil || code != http.StatusOK {
		log.Fatalf("login: status=%d err=%v", code, err)
	}

	var me struct {
		Email     string `json:"email"`
		Authority string `json:"authority"`
	}
	if code, err := c.call(ctx, http.MethodGet, "/api/auth/me", tokens.AccessToken, nil, &me); err != nil || code != http.StatusOK {
		log.Fatalf("me: status=%d err=%v", code, err)
	}
	if me.Email != email || me.Authority != "ROLE_SELLER" {
		log.Fatalf("unexpected identity: %+v", me)
	}

	var shop struct {
		Slug string `json:"slug"`
	}
	if code, err := c.call(ctx, http.MethodPost, "/api/shops", tokens.AccessToken, map[string]string{"name": "Smoke Shop"}, &shop); err != nil || code != http.StatusCreated {
		log.Fatalf("create shop: status=%d err=%v", code, err)
	}
	if code, err := c.call(ctx, http.MethodPut, "/api/shops/"+shop.Slug, "", map[string]string{"description": "anonymous edit"}, nil); err != nil || code != http.StatusUnauthorized {
		log.Fatalf("anonymous update must be rejected: status=%d err=%v", code, err)
	}

	// Failed logins are paced at 20/s.
	pacer := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	bad := map[string]string{"email": email, "password": "wrong-password"}
	for i := 1; i <= maxAttempts; i++ {
		if err := pacer.Wait(ctx); err != nil {
			log.Fatalf("pacer: %v", err)
		}
		var body map[string]string
		code, err := c.call(ctx, http.MethodPost, "/api/auth/login", "", bad, &body)
		if err != nil {
			log.Fatalf("login attempt %d: %v", i, err)
		}
		if code == http.StatusTooManyRequests {
			if body["error"] != "Too many requests from this IP" {
				log.Fatalf("unexpected 429 body: %v", body)
			}
			fmt.Printf("smoke test passed: %s limited after %d failed logins\n", email, i)
			return
		}
		if code != http.StatusUnauthorized {
			log.Fatalf("login attempt %d: unexpected status %d", i, code)
		}
	}
	log.Fatalf("no 429 after %d attempts", maxAttempts)
}
