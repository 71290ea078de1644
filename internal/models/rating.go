package models

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrRatingOutOfRange is returned for ratings outside 1..5.
var ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

// RatingHistogram counts reviews per star value; index 0 holds one-star
// reviews. It is the source of truth for a product's average rating.
type RatingHistogram [5]int64

func bucket(rating int) (int, error) {
	if rating < 1 || rating > 5 {
		return 0, fmt.Errorf("%w: got %d", ErrRatingOutOfRange, rating)
	}
	return rating - 1, nil
}

// Add counts one more review with the given rating.
func (h *RatingHistogram) Add(rating int) error {
	i, err := bucket(rating)
	if err != nil {
		return err
	}
	h[i]++
	return nil
}

// Remove takes one review with the given rating out. The bucket never goes
// negative; underflow is reported when it was already zero.
func (h *RatingHistogram) Remove(rating int) (underflow bool, err error) {
	i, err := bucket(rating)
	if err != nil {
		return false, err
	}
	if h[i] == 0 {
		return true, nil
	}
	h[i]--
	return false, nil
}

// Count returns the number of reviews.
func (h RatingHistogram) Count() int64 {
	var n int64
	for _, c := range h {
		n += c
	}
	return n
}

// Average is the weighted mean rounded to one decimal, or 0 when empty.
// Rounding applies to the float64 quotient as stored, so 87/20 (held as
// 4.3499...) gives 4.3, not 4.4.
func (h RatingHistogram) Average() float64 {
	count := h.Count()
	if count == 0 {
		return 0
	}
	var score int64
	for i, c := range h {
		score += c * int64(i+1)
	}
	avg, _ := strconv.ParseFloat(strconv.FormatFloat(float64(score)/float64(count), 'f', 1, 64), 64)
	return avg
}
