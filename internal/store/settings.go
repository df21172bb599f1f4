package store

import (
	"context"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

// GetSettings retrieves host settings merged with hard-coded defaults.
// A missing key never surfaces to callers: the stored overlay is
// unmarshalled over the default record, so reads always return a fully
// populated value.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := domain.DefaultSettings()
	if err := s.get([]byte(keySettings), settings); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return settings, nil
		}
		return nil, err
	}
	return settings, nil
}

// PatchSettings applies a partial update on top of the current (merged)
// settings and stores the result.
func (s *Store) PatchSettings(ctx context.Context, patch *domain.SettingsPatch) (*domain.Settings, error) {
	if patch == nil {
		return nil, errors.InvalidRecord("settings patch is nil")
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	patch.Apply(settings)

	if err := s.set([]byte(keySettings), settings); err != nil {
		return nil, err
	}

	s.emit(ChangeEvent{Kind: "settings", Op: "put", ID: keySettings})
	return settings, nil
}
