package marketplace

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const (
	authTimeout = 30 * time.Second
)

// AuthFlow implements domain.AuthFlow for email/password sign-in
type AuthFlow struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// NewAuthFlow creates a new password authentication flow
func NewAuthFlow(logger *slog.Logger) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{
		logger: logger,
		httpClient: &http.Client{
			Timeout: authTimeout,
		},
	}
}

// Run prompts for email and password and signs in against the marketplace
func (f *AuthFlow) Run(ctx context.Context, serverURL string) (*domain.AuthResult, error) {
	serverURL = strings.TrimRight(serverURL, "/")

	fmt.Println()
	fmt.Println("Marketplace sign-in")
	fmt.Println("━━━━━━━━━━━━━━━━━━━")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read email: %w", err)
	}
	email = strings.TrimSpace(email)

	// Hidden input
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Println()
	fmt.Println("Signing in...")

	result, err := f.Authenticate(ctx, serverURL, email, string(passwordBytes))
	if err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Signed in as %s\n", result.Username)

	return result, nil
}

// Authenticate exchanges email and password for a bearer token
func (f *AuthFlow) Authenticate(ctx context.Context, serverURL, email, password string) (*domain.AuthResult, error) {
	bodyBytes, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/auth/login", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error("login request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthenticated, errorMessage(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("login error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("authentication failed with status %d", resp.StatusCode)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	if loginResp.Token == "" || loginResp.User.ID == "" {
		return nil, fmt.Errorf("authentication response is missing token or user")
	}

	return &domain.AuthResult{
		Token:    loginResp.Token,
		UserID:   loginResp.User.ID,
		Username: loginResp.User.Name,
	}, nil
}

// PromptForServerURL prompts the user to enter the marketplace URL
func PromptForServerURL() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter the marketplace URL (e.g., https://reveilartist.com): ")
	url, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(url), nil
}
