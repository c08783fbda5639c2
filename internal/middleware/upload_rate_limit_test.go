package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitApp(t *testing.T, cache *redis.Client, maxPerMin int) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/upload/:token", UploadRateLimit(cache, maxPerMin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestUploadRateLimitBlocksOverLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := setupRateLimitApp(t, cache, 3)

	post := func(token string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/upload/"+token, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 3; i++ {
		if code := post("tok1"); code != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, code)
		}
	}
	if code := post("tok1"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", code)
	}

	// Another token has its own budget.
	if code := post("tok2"); code != fiber.StatusOK {
		t.Fatalf("other token should be unaffected, got %d", code)
	}
}

func TestUploadRateLimitResetsAfterWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := setupRateLimitApp(t, cache, 1)

	post := func() int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/upload/tok1", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(); code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := post(); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	mr.FastForward(61 * time.Second)

	if code := post(); code != fiber.StatusOK {
		t.Fatalf("expected the window to reset, got %d", code)
	}
}

func TestUploadRateLimitFailsOpenWithoutCache(t *testing.T) {
	app := setupRateLimitApp(t, nil, 1)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/upload/tok1", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("limiter must be a no-op without redis, got %d", resp.StatusCode)
		}
	}
}
