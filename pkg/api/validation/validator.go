// FHK Core
// Copyright (c) 2026 The FHK Core Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FHK Core.
//
// FHK Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FHK Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FHK Core.  If not, see <http://www.gnu.org/licenses/>.

// Package validation checks API request bodies and configuration values
// using go-playground/validator with a few blaster specific tags.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nextgennerf/fhk-core/pkg/device/protocol"
)

var (
	ErrMissingParams = errors.New("missing params")
	ErrInvalidParams = errors.New("invalid params")
)

type contextKey struct{}

var validateCtxKey = contextKey{}

// Validator handles validation of structs.
type Validator struct {
	validate *validator.Validate
}

// Context provides runtime context for validation.
type Context struct {
	Targets []string
}

// NewContext creates a Context from the known target names.
func NewContext(targets []string) *Context {
	return &Context{Targets: targets}
}

// NewValidator creates a new Validator with the custom tags registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("finite", validateFinite)
	_ = v.RegisterValidation("nonzero", validateNonZero)
	_ = v.RegisterValidation("glob", validateGlob)
	_ = v.RegisterValidation("command", validateCommand)
	_ = v.RegisterValidationCtx("target", validateTarget)

	return &Validator{validate: v}
}

// DefaultValidator is a shared instance.
var DefaultValidator = NewValidator()

// Validate validates a struct and returns a formatted error if validation fails.
func (v *Validator) Validate(params any) error {
	return v.ValidateCtx(context.Background(), params, nil)
}

// ValidateCtx validates a struct with context and returns a formatted error.
func (v *Validator) ValidateCtx(ctx context.Context, params any, vctx *Context) error {
	ctxVal := context.WithValue(ctx, validateCtxKey, vctx)
	if err := v.validate.StructCtx(ctxVal, params); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateAndUnmarshal decodes JSON into dest and validates it.
// Returns ErrMissingParams if data is empty, ErrInvalidParams if it does
// not decode, or an *Error if validation fails.
func ValidateAndUnmarshal[T any](data []byte, dest *T) error {
	return ValidateAndUnmarshalCtx(context.Background(), data, dest, nil)
}

// ValidateAndUnmarshalCtx is ValidateAndUnmarshal with a validation context.
func ValidateAndUnmarshalCtx[T any](ctx context.Context, data []byte, dest *T, vctx *Context) error {
	if len(data) == 0 {
		return ErrMissingParams
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrInvalidParams
	}
	return DefaultValidator.ValidateCtx(ctx, dest, vctx)
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validateNonZero(fl validator.FieldLevel) bool {
	return fl.Field().Float() != 0
}

// validateGlob checks a filepath.Match pattern.
func validateGlob(fl validator.FieldLevel) bool {
	_, err := filepath.Match(fl.Field().String(), "")
	return err == nil
}

// validateCommand checks the string parses as a device command.
func validateCommand(fl validator.FieldLevel) bool {
	_, err := protocol.ParseCommand(fl.Field().String())
	return err == nil
}

// validateTarget checks the name against the targets in the context.
func validateTarget(ctx context.Context, fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	vctx, ok := ctx.Value(validateCtxKey).(*Context)
	if !ok || vctx == nil {
		return true
	}
	for _, name := range vctx.Targets {
		if strings.EqualFold(name, val) {
			return true
		}
	}
	return false
}
