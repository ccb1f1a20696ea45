package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/utils"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("account is deactivated")
)

type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	BarId        string    `gorm:"type:char(36);not null;index" json:"bar_id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	Role         UserRole  `gorm:"size:20;not null;default:staff" json:"role"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newId(&u.ID)
	return nil
}

/*
caches:
	User:$id
*/

func userCacheKey(id string) string {
	return "User:" + id
}

type NewOwnerRegistration struct {
	BarName  string `json:"bar_name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,max=255"`
}

type NewStaff struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	FullName string   `json:"full_name" binding:"required,max=255"`
	Role     UserRole `json:"role" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginInfo struct {
	Token string `json:"access_token"`
	User  *User  `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken(ctx context.Context, db *gorm.DB, email string) error {
	count, err := utils.ResourceCountWhere[User](ctx, db, "", "email = ?", email)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

// RegisterOwner creates a bar together with its owner account.
func RegisterOwner(ctx context.Context, db *gorm.DB, input *NewOwnerRegistration) (*Bar, *User, error) {
	email := normalizeEmail(input.Email)
	if !utils.IsValidEmail(email) {
		return nil, nil, utils.NewInputError("invalid email")
	}
	if err := emailTaken(ctx, db, email); err != nil {
		return nil, nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	var (
		bar  *Bar
		user User
	)
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bar, err = CreateBar(ctx, tx, &NewBar{Name: input.BarName})
		if err != nil {
			return err
		}
		user = User{
			BarId:        bar.ID,
			Email:        email,
			PasswordHash: string(hashed),
			FullName:     strings.TrimSpace(input.FullName),
			Role:         UserRoleOwner,
			IsActive:     utils.NewTrue(),
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}
	return bar, &user, nil
}

// CreateStaff adds a user to the creator's bar. Only owners may create managers
// and nobody may create another owner.
func CreateStaff(ctx context.Context, db *gorm.DB, creatorRole UserRole, input *NewStaff) (*User, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, utils.NewInputError("invalid role")
	}
	if input.Role == UserRoleOwner {
		return nil, utils.NewForbiddenError("cannot create another owner")
	}
	if input.Role == UserRoleManager && creatorRole != UserRoleOwner {
		return nil, utils.NewForbiddenError("only owners can create managers")
	}

	email := normalizeEmail(input.Email)
	if err := emailTaken(ctx, db, email); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		BarId:        barId,
		Email:        email,
		PasswordHash: string(hashed),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

func Login(ctx context.Context, db *gorm.DB, issuer *utils.TokenIssuer, input *LoginInput) (*LoginInfo, error) {
	var user User
	err := db.WithContext(ctx).Where("email = ?", normalizeEmail(input.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !utils.DereferencePtr(user.IsActive) {
		return nil, ErrUserInactive
	}
	token, err := issuer.Generate(user.ID, user.BarId, string(user.Role), user.FullName)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{Token: token, User: &user}, nil
}

// GetActiveUser reads the user through the redis cache and rejects deactivated accounts.
func GetActiveUser(ctx context.Context, db *gorm.DB, cache *config.RedisStore, id string) (*User, error) {
	var user User
	exists, err := cache.GetObject(ctx, userCacheKey(id), &user)
	if err != nil {
		exists = false
	}
	if !exists {
		if err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return nil, notFound(err)
		}
		_ = cache.SetObject(ctx, userCacheKey(id), &user, time.Hour)
	}
	if !utils.DereferencePtr(user.IsActive) {
		return nil, ErrUserInactive
	}
	return &user, nil
}

func ListUsers(ctx context.Context, db *gorm.DB) ([]*User, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	var users []*User
	if err := db.WithContext(ctx).Where("bar_id = ?", barId).Order("full_name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserActive toggles an account of the caller's bar and drops its cache entry.
func SetUserActive(ctx context.Context, db *gorm.DB, cache *config.RedisStore, id string, active bool) (*User, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	user, err := utils.FetchModel[User](ctx, db, barId, id)
	if err != nil {
		return nil, err
	}
	if user.Role == UserRoleOwner && !active {
		return nil, utils.NewInputError("cannot deactivate the owner")
	}
	if err := db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	user.IsActive = &active
	_ = cache.RemoveKey(ctx, userCacheKey(id))
	return user, nil
}
