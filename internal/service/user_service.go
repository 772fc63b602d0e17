package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"strings"
)

// ProfileUpdate 可修改的资料字段，nil 表示不修改。角色和 ID 不可修改
type ProfileUpdate struct {
	Name              *string `json:"name"`
	PhotoURL          *string `json:"photoURL"`
	Bio               *string `json:"bio"`
	PreferredLanguage *string `json:"preferredLanguage"`
}

type UserService struct {
	UserRepo UserStore
}

func NewUserService(userRepo UserStore) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.PhotoURL != nil {
		fields["photo_url"] = *in.PhotoURL
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.PreferredLanguage != nil {
		fields["preferred_language"] = *in.PreferredLanguage
	}
	if len(fields) > 0 {
		if err := s.UserRepo.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.UserRepo.FindByID(ctx, userID)
}

// ListUsers 仅管理员可用
func (s *UserService) ListUsers(ctx context.Context, actor Actor) ([]model.User, error) {
	if !actor.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	return s.UserRepo.ListAll(ctx)
}
