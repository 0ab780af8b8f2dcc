package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OrderNumberLen is the length of every external order number.
const OrderNumberLen = 18

var suffixSpace = big.NewInt(10000)

// NewOrderNumber returns an 18 digit order number: the local wall clock as
// yyyyMMddHHmmss followed by four random digits.  Uniqueness is finally
// enforced by the orders.order_number index; callers regenerate on a
// duplicate key.
func NewOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", now.Format("20060102150405"), n.Int64()), nil
}
