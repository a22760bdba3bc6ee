package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Resolver looks up chat user display names through the bot API.
type Resolver struct {
	apiBase  string
	botToken string
	client   *http.Client
	logger   *slog.Logger
}

func NewResolver(apiBase, botToken string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		apiBase:  strings.TrimRight(apiBase, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type userResponse struct {
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// DisplayName returns the global display name, falling back to the username.
// Without a bot token it returns "" and no error.
func (r *Resolver) DisplayName(ctx context.Context, externalID string) (string, error) {
	if r.botToken == "" || r.apiBase == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", r.apiBase, externalID), nil)
	if err != nil {
		return "", fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+r.botToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("identity API returned status %d", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}

	r.logger.Debug("resolved identity", "external_id", externalID)
	if body.GlobalName != "" {
		return body.GlobalName, nil
	}
	return body.Username, nil
}
