package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Email      string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	IsAdmin    *bool     `gorm:"not null;default:false" json:"is_admin"`
	Department string    `gorm:"size:100" json:"department"`
	JobTitle   string    `gorm:"size:100" json:"job_title"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
	IsAdmin    bool   `json:"is_admin"`
	Department string `json:"department"`
	JobTitle   string `json:"job_title"`
}

func (u *User) Role() string {
	if u.IsAdmin != nil && *u.IsAdmin {
		return "Admin"
	}
	return "User"
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if !utils.IsValidEmail(input.Email) {
		return nil, fmt.Errorf("%w: invalid email", utils.ErrorValidation)
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	isAdmin := input.IsAdmin
	user := User{
		Email:      input.Email,
		Name:       input.Name,
		Password:   string(hashed),
		IsAdmin:    &isAdmin,
		Department: input.Department,
		JobTitle:   input.JobTitle,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns the user plus a signed JWT.
// A missing user and a wrong password both surface as the same error.
func Login(ctx context.Context, email string, password string) (*User, string, error) {

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "", fmt.Errorf("%w: invalid email or password", utils.ErrorPermissionDenied)
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email or password", utils.ErrorPermissionDenied)
	}

	token, err := utils.JwtGenerate(user.ID, user.Role())
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}
