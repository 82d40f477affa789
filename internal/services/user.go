package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/apierr"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{log: log.With("service", "UserService"), userRepo: userRepo}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	found, err := us.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		us.log.Warn("Token refers to a missing user", "user_id", rd.UserID)
		return nil, apierr.NotFound("user_not_found", "user does not exist")
	}
	return found[0], nil
}

type updateNameInput struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"max=100"`
}

func (us *userService) UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	in := updateNameInput{FirstName: trim(firstName), LastName: trim(lastName)}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := us.userRepo.UpdateName(dbctx.Context{Ctx: ctx}, rd.UserID, in.FirstName, in.LastName); err != nil {
		return nil, fmt.Errorf("update name: %w", err)
	}
	return us.GetMe(ctx)
}
