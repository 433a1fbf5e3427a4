package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

// Seller is the supplier a Purchase is received from.
type Seller struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" validate:"required"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSeller struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (input *NewSeller) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Seller](ctx, "name", strings.TrimSpace(input.Name), id); err != nil {
		return &InvalidInputError{Reason: err.Error()}
	}
	return nil
}

func CreateSeller(ctx context.Context, input *NewSeller) (*Seller, error) {
	db := config.GetDB()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	seller := Seller{
		Name:     strings.TrimSpace(input.Name),
		Phone:    input.Phone,
		Email:    input.Email,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func GetSeller(ctx context.Context, id int) (*Seller, error) {
	db := config.GetDB()

	var seller Seller
	if err := db.WithContext(ctx).First(&seller, id).Error; err != nil {
		return nil, &NotFoundError{Resource: "seller"}
	}
	return &seller, nil
}
