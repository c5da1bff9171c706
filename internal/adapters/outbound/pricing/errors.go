package pricing

import (
	"errors"
	"strconv"
)

var errPriceMissing = errors.New("price missing from response")

type statusError struct {
	statusCode int
}

func (e *statusError) Error() string {
	return "price api returned status " + strconv.Itoa(e.statusCode)
}
