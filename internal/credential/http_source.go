package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
)

// HTTPSource fetches credentials from a token-issuing endpoint such as GET /api/session.
type HTTPSource struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPSource(endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{endpoint: endpoint, client: client, logger: logging.For("credential")}
}

func (s *HTTPSource) Fetch(ctx context.Context) (domain.Credential, error) {
	s.logger.Debug("fetch_session_token_request", "url", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("fetch_session_token_response", "url", s.endpoint, "error", err)
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", err)
	}
	s.logger.Debug("fetch_session_token_response", "url", s.endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key",
			fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
	}

	var grant Grant
	if err := json.Unmarshal(body, &grant); err != nil {
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", err)
	}
	return grant.Credential()
}
