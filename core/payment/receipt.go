package payment

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	rnd   = rand.New(rand.NewSource(time.Now().UnixNano()))
	rndMu sync.Mutex
)

// ReceiptNumber formats a receipt number: the yyMMdd issue date followed by 3 random digits.
func ReceiptNumber(issued time.Time) string {
	rndMu.Lock()
	n := rnd.Intn(1000)
	rndMu.Unlock()
	return fmt.Sprintf("%s%03d", issued.Format("060102"), n)
}
