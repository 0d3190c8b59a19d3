package services

import "errors"

var (
	ErrFoodNotFound = errors.New("food item not found")
	ErrMealNotFound = errors.New("meal not found")
	// ErrFoodInUse blocks deleting a food that meals still reference.
	ErrFoodInUse   = errors.New("food item is referenced by meals")
	ErrInvalidMeal = errors.New("invalid meal")
	// ErrCorruptRecord marks a stored food row that no longer validates.
	ErrCorruptRecord = errors.New("stored food record is invalid")

	ErrImagesUnavailable      = errors.New("image storage is not configured")
	ErrRecognitionUnavailable = errors.New("image recognition is not configured")
)
