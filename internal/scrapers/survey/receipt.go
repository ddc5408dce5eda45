package survey

import (
	"fmt"
	"strings"
)

// ReceiptCode is the three part code printed on a receipt, written as A-B-C.
type ReceiptCode struct {
	CN1 string
	CN2 string
	CN3 string
}

func ParseReceiptCode(code string) (ReceiptCode, error) {
	parts := strings.Split(strings.TrimSpace(code), "-")
	if len(parts) != 3 {
		return ReceiptCode{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidReceiptCode, len(parts))
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return ReceiptCode{}, fmt.Errorf("%w: segment %d is empty", ErrInvalidReceiptCode, i+1)
		}
	}
	return ReceiptCode{CN1: parts[0], CN2: parts[1], CN3: parts[2]}, nil
}

func (c ReceiptCode) String() string {
	return c.CN1 + "-" + c.CN2 + "-" + c.CN3
}
