package transactions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "AGM"

// NewOrderNumber synthesizes the gateway-facing order reference, embedding
// the order id and the initiation timestamp.
func NewOrderNumber(orderID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", orderNumberPrefix, orderID, now.Unix())
}

// ParseOrderNumber recovers the order id from a gateway order reference.
func ParseOrderNumber(token string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(token, orderNumberPrefix+"-")
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid order number %q", token)
	}

	sep := strings.LastIndex(rest, "-")
	if sep < 0 {
		return uuid.Nil, fmt.Errorf("invalid order number %q", token)
	}

	if _, err := strconv.ParseInt(rest[sep+1:], 10, 64); err != nil {
		return uuid.Nil, fmt.Errorf("invalid order number timestamp in %q", token)
	}

	id, err := uuid.Parse(rest[:sep])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid order id in order number %q", token)
	}
	return id, nil
}
