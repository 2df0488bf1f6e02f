package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWalletProjectServiceSetTrimsValue(t *testing.T) {
	t.Parallel()

	secrets := mocks.NewMockSecretStore(t)
	secrets.EXPECT().Put(mock.Anything, WalletProjectSecretKey, "wc-42").Return(nil).Once()

	svc := NewWalletProjectService(secrets)
	require.NoError(t, svc.SetProjectID(context.Background(), "  wc-42\n"))
	assert.ErrorContains(t, svc.SetProjectID(context.Background(), " "), "project id is required")
}

func TestWalletProjectServiceMissingIDIsEmpty(t *testing.T) {
	t.Parallel()

	secrets := mocks.NewMockSecretStore(t)
	secrets.EXPECT().Get(mock.Anything, WalletProjectSecretKey).Return("", fmt.Errorf("file: %w", domain.ErrSecretNotFound)).Once()

	projectID, err := NewWalletProjectService(secrets).ProjectID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projectID)
}

func TestWalletProjectServiceSurfacesBackendErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("gpg locked")
	secrets := mocks.NewMockSecretStore(t)
	secrets.EXPECT().Get(mock.Anything, WalletProjectSecretKey).Return("", boom).Once()
	secrets.EXPECT().Delete(mock.Anything, WalletProjectSecretKey).Return(boom).Once()

	svc := NewWalletProjectService(secrets)
	_, err := svc.ProjectID(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.RemoveProjectID(context.Background()), boom)
}
