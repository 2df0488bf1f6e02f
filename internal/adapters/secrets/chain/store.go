package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/jkalmus/defifolio/internal/adapters/secrets/file"
	passstore "github.com/jkalmus/defifolio/internal/adapters/secrets/pass"
	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

// Store tries its backends in order. Reads and writes stop at the first
// backend that succeeds; deletes reach every backend.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret store chain has no backends")

func NewStore(backends ...ports.SecretStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("secret store backend %d is nil", i)
		}
	}

	return &Store{backends: backends}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if isContextError(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d put: %w", i, err))
	}

	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	notFound := true
	for i, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if isContextError(err) {
			return "", err
		}
		if !errors.Is(err, domain.ErrSecretNotFound) {
			notFound = false
		}
		errs = append(errs, fmt.Errorf("backend %d get: %w", i, err))
	}

	if notFound {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}
	return "", errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	deleted := false
	for i, backend := range s.backends {
		err := backend.Delete(ctx, key)
		if err == nil {
			deleted = true
			continue
		}
		if isContextError(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d delete: %w", i, err))
	}

	if deleted {
		return nil
	}
	return errors.Join(errs...)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
