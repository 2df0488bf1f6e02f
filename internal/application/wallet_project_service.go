package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

const WalletProjectSecretKey = "defifolio/walletconnect/project_id"

// WalletProjectService manages the optional WalletConnect project id passed to
// the relay with every pairing.
type WalletProjectService struct {
	secrets ports.SecretStore
}

func NewWalletProjectService(secrets ports.SecretStore) *WalletProjectService {
	return &WalletProjectService{secrets: secrets}
}

func (s *WalletProjectService) SetProjectID(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.New("project id is required")
	}

	if err := s.secrets.Put(ctx, WalletProjectSecretKey, projectID); err != nil {
		return fmt.Errorf("store wallet project id: %w", err)
	}

	return nil
}

// ProjectID returns an empty id when none is configured.
func (s *WalletProjectService) ProjectID(ctx context.Context) (string, error) {
	projectID, err := s.secrets.Get(ctx, WalletProjectSecretKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load wallet project id: %w", err)
	}

	return strings.TrimSpace(projectID), nil
}

func (s *WalletProjectService) RemoveProjectID(ctx context.Context) error {
	if err := s.secrets.Delete(ctx, WalletProjectSecretKey); err != nil {
		return fmt.Errorf("remove wallet project id: %w", err)
	}

	return nil
}
