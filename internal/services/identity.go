package services

import (
	"context"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
)

// resolveUser turns a bearer token into a known user.
func resolveUser(ctx context.Context, store core.DbClient, validator core.CredentialValidator, token string) (*models.User, error) {
	const op = "resolve identity"

	if strings.TrimSpace(token) == "" {
		return nil, core.NewError(core.ErrUnauthenticated, op, "missing token")
	}
	id, err := validator.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailure, op, err)
	}
	if user == nil {
		return nil, core.NewError(core.ErrIdentityNotFound, op, "no user for token")
	}
	return user, nil
}
