//go:build acceptance

package acceptance

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strconv"

	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/internal/stubapp"
)

// stubEnv starts an in-process gold shop and points the suite at it when set to true.
const stubEnv = "GOLDSUITE_STUB"

// startStubShop serves the stub shop on a local port and sets BASE_URL, TEST_USER and
// TEST_PASS for the suite. Credentials already present in the environment are kept.
// It returns a function that stops the shop.
func startStubShop() (stop func()) {
	if enabled, _ := strconv.ParseBool(os.Getenv(stubEnv)); !enabled {
		return func() {}
	}

	username := envOr(config.KeyUser, "demo")
	password := envOr(config.KeyPass, "demo")

	shop := stubapp.New(
		stubapp.WithCredentials(username, password),
		stubapp.WithLogger(slog.Default()),
	)
	srv := httptest.NewServer(shop)

	_ = os.Setenv(config.KeyBaseURL, srv.URL)
	_ = os.Setenv(config.KeyUser, username)
	_ = os.Setenv(config.KeyPass, password)

	return func() {
		srv.Close()
		shop.Close()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
