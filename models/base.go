package models

import (
	"context"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// package-level validator shared by all New* input structs
var validate = validator.New()

// validateInput runs struct tag validation and folds failures into the taxonomy.
func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		fields := utils.ProcessValidationErrors(err)
		for field, tag := range fields {
			return &InvalidInputError{Reason: field + " failed " + tag}
		}
	}
	return nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
