package binder

import (
	"context"
	"math"
	"reflect"
	"unicode"

	"github.com/booknetwork/booknet/pkg/isbn"
	"github.com/booknetwork/booknet/pkg/textutil"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/validator/v10"
)

// halfStepValidator accepts floats that are whole or half numbers, e.g. 3 or
// 4.5. Range checks are left to min/max.
func halfStepValidator(fl validator.FieldLevel) bool {
	v := fl.Field().Float() * 2
	return v == math.Trunc(v)
}

// passwordValidator requires at least one letter and one digit. Length is left
// to min/max.
func passwordValidator(fl validator.FieldLevel) bool {
	var letter, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func isbnValidator(fl validator.FieldLevel) bool {
	return isbn.Valid(fl.Field().String())
}

// plainTextModifier strips markup from string fields tagged mod:"plaintext".
func plainTextModifier(_ context.Context, fl mold.FieldLevel) error {
	if fl.Field().Kind() != reflect.String || !fl.Field().CanSet() {
		return nil
	}
	fl.Field().SetString(textutil.PlainText(fl.Field().String()))
	return nil
}
