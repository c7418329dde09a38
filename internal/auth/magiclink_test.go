package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lumenworks/frameio-relay/internal/runtime"
	"github.com/lumenworks/frameio-relay/internal/storage"
)

type fakeDirectory struct {
	users  map[string]storage.User
	logins map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]storage.User{}, logins: map[string]int{}}
}

func (d *fakeDirectory) GetOrCreate(_ context.Context, email string) (storage.User, error) {
	if u, ok := d.users[email]; ok {
		return u, nil
	}
	u := storage.User{ID: fmt.Sprintf("user-%d", len(d.users)+1), Email: email, CreatedAt: time.Now()}
	d.users[email] = u
	return u, nil
}

func (d *fakeDirectory) TouchLogin(_ context.Context, id string) error {
	d.logins[id]++
	return nil
}

func newTestMagic(t *testing.T) (*MagicLinkService, *miniredis.Miniredis, *fakeDirectory, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	buf := &bytes.Buffer{}
	dir := newFakeDirectory()
	svc := NewMagicLinkService(rdb, dir, runtime.NewLoggerTo(buf, "auth-test"),
		"test-session-secret", "http://relay.local/", 10*time.Minute, time.Hour)
	return svc, mr, dir, buf
}

// loggedToken digs the one-time token out of the link written to the logs.
func loggedToken(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if rec["msg"] != "magic link generated" {
			continue
		}
		link, _ := rec["link"].(string)
		u, err := url.Parse(link)
		if err != nil {
			t.Fatalf("bad link in log: %v", err)
		}
		return u.Query().Get("token")
	}
	t.Fatal("no magic link record in logs")
	return ""
}

func TestSendStoresHashedToken(t *testing.T) {
	svc, mr, _, buf := newTestMagic(t)

	if err := svc.Send(context.Background(), "pat@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	token := loggedToken(t, buf)

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one key in redis, got %v", keys)
	}
	if !strings.HasPrefix(keys[0], "magiclink:") {
		t.Fatalf("unexpected key %q", keys[0])
	}
	if strings.Contains(keys[0], token) {
		t.Fatalf("raw token stored in redis key %q", keys[0])
	}
	got, err := mr.Get(keys[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "pat@example.com" {
		t.Fatalf("stored value = %q", got)
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	svc, _, dir, buf := newTestMagic(t)
	ctx := context.Background()

	if err := svc.Send(ctx, "pat@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	token := loggedToken(t, buf)

	session, user, err := svc.Redeem(ctx, token, "pat@example.com")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if user.Email != "pat@example.com" {
		t.Fatalf("user email = %q", user.Email)
	}
	claims, err := ParseAndVerifyHS256(session, "test-session-secret")
	if err != nil {
		t.Fatalf("session token does not verify: %v", err)
	}
	if claims.Sub != user.ID || claims.Email != user.Email {
		t.Fatalf("claims = %+v, user = %+v", claims, user)
	}
	if dir.logins[user.ID] != 1 {
		t.Fatalf("login recorded %d times", dir.logins[user.ID])
	}

	if _, _, err := svc.Redeem(ctx, token, "pat@example.com"); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("second redeem: got %v, want ErrLinkInvalid", err)
	}
}

func TestRedeemRejectsWrongEmail(t *testing.T) {
	svc, _, dir, buf := newTestMagic(t)
	ctx := context.Background()

	if err := svc.Send(ctx, "pat@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	token := loggedToken(t, buf)

	if _, _, err := svc.Redeem(ctx, token, "mallory@example.com"); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("got %v, want ErrLinkInvalid", err)
	}
	if len(dir.users) != 0 {
		t.Fatalf("no user should be created, got %v", dir.users)
	}
}

func TestRedeemExpiredLink(t *testing.T) {
	svc, mr, _, buf := newTestMagic(t)
	ctx := context.Background()

	if err := svc.Send(ctx, "pat@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	token := loggedToken(t, buf)

	mr.FastForward(11 * time.Minute)

	if _, _, err := svc.Redeem(ctx, token, "pat@example.com"); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("got %v, want ErrLinkInvalid", err)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestMagic(t)

	if _, _, err := svc.Redeem(context.Background(), "deadbeef", "pat@example.com"); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("got %v, want ErrLinkInvalid", err)
	}
}
