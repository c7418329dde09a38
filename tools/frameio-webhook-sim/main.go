// Command frameio-webhook-sim posts a signed Frame.io-shaped event to a
// running relay, for local smoke testing.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "relay base url")
		evtType   = flag.String("type", getenv("FRAMEIO_EVENT_TYPE", "asset.created"), "event type")
		resID     = flag.String("resource-id", getenv("RESOURCE_ID", ""), "resource id (random if empty)")
		resType   = flag.String("resource-type", getenv("RESOURCE_TYPE", "asset"), "resource type")
		accountID = flag.String("account-id", getenv("ACCOUNT_ID", ""), "optional account id")
		projectID = flag.String("project-id", getenv("PROJECT_ID", ""), "optional project id")
		secret    = flag.String("secret", getenv("FRAMEIO_WEBHOOK_SECRET", ""), "webhook signing secret (empty sends unsigned)")
	)
	flag.Parse()

	now := time.Now().UTC()
	if *resID == "" {
		*resID = fmt.Sprintf("res_test_%d", now.UnixNano())
	}

	body := map[string]any{
		"type": *evtType,
		"resource": map[string]any{
			"id":   *resID,
			"type": *resType,
		},
	}
	if *accountID != "" {
		body["account"] = map[string]any{"id": *accountID}
	}
	if *projectID != "" {
		body["project"] = map[string]any{"id": *projectID}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/frameio/webhook", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	if *secret != "" {
		timestamp := strconv.FormatInt(now.Unix(), 10)
		mac := hmac.New(sha256.New, []byte(*secret))
		fmt.Fprintf(mac, "v0:%s:%s", timestamp, payload)
		req.Header.Set("X-Frameio-Request-Timestamp", timestamp)
		req.Header.Set("X-Frameio-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
