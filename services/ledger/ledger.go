package ledger

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"sfhs/storefront/logger"
	apperrors "sfhs/storefront/pkg/errors"
)

const (
	header = "TIMESTAMP|CUSTOMER_USERNAME|STORE_USERNAME|ITEM_NAME|QUANTITY|UNIT_PRICE|TOTAL_AMOUNT|CUSTOMER_EMAIL|STORE_NAME|TRANSACTION_ID"

	fieldCount = 10
	maxResults = 100
)

// Purchase is one completed transaction line in the ledger file.
type Purchase struct {
	Timestamp        string  `json:"timestamp"`
	CustomerUsername string  `json:"customerUsername"`
	StoreUsername    string  `json:"storeUsername"`
	ItemName         string  `json:"itemName"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unitPrice"`
	TotalAmount      float64 `json:"totalAmount"`
	CustomerEmail    string  `json:"customerEmail"`
	StoreName        string  `json:"storeName"`
	TransactionID    string  `json:"transactionId"`
}

// Ledger is an append-only pipe-delimited purchase log. Appends are
// serialized by a mutex; reads re-scan the file so they always see
// the latest writes.
type Ledger struct {
	path string
	mu   sync.Mutex
	log  *logger.Logger
}

// NewLedger opens the ledger at path, creating the file and its header
// line when missing.
func NewLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, log: logger.ForLedger()}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.NewLedger("ledger", "failed to create ledger directory", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header+"\n"), 0o644); err != nil {
			return nil, apperrors.NewLedger("ledger", "failed to create ledger file", err)
		}
		l.log.Info().Str("path", path).Msg("Created purchase ledger")
	} else if err != nil {
		return nil, apperrors.NewLedger("ledger", "failed to stat ledger file", err)
	}

	return l, nil
}

// NewTransactionID returns a fresh transaction identifier.
func NewTransactionID() string {
	return fmt.Sprintf("TXN_%d_%d", time.Now().UnixMilli(), rand.Intn(1000000))
}

// Append writes one purchase line to the ledger.
func (l *Ledger) Append(p Purchase) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.NewLedger("ledger", "failed to open ledger for append", err)
	}
	defer f.Close()

	line := strings.Join([]string{
		p.Timestamp,
		p.CustomerUsername,
		p.StoreUsername,
		p.ItemName,
		strconv.Itoa(p.Quantity),
		formatAmount(p.UnitPrice),
		formatAmount(p.TotalAmount),
		p.CustomerEmail,
		p.StoreName,
		p.TransactionID,
	}, "|")

	if _, err := f.WriteString(line + "\n"); err != nil {
		return apperrors.NewLedger("ledger", "failed to append purchase", err)
	}

	l.log.Debug().
		Str("transactionId", p.TransactionID).
		Str("store", p.StoreUsername).
		Msg("Recorded purchase")
	return nil
}

// ByStore returns purchases for a store username, newest first,
// capped at 100 entries.
func (l *Ledger) ByStore(storeUsername string) ([]Purchase, error) {
	return l.filter(func(p Purchase) bool {
		return p.StoreUsername == storeUsername
	})
}

// ByCustomer returns purchases for a customer username, newest first,
// capped at 100 entries.
func (l *Ledger) ByCustomer(customerUsername string) ([]Purchase, error) {
	return l.filter(func(p Purchase) bool {
		return p.CustomerUsername == customerUsername
	})
}

func (l *Ledger) filter(match func(Purchase) bool) ([]Purchase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Purchase{}, nil
		}
		return nil, apperrors.NewLedger("ledger", "failed to open ledger", err)
	}
	defer f.Close()

	var matched []Purchase
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if line == header {
				continue
			}
		}
		if line == "" {
			continue
		}

		p, ok := parseLine(line)
		if !ok {
			l.log.Warn().Str("line", line).Msg("Skipping malformed ledger line")
			continue
		}
		if match(p) {
			matched = append(matched, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewLedger("ledger", "failed to read ledger", err)
	}

	// Newest entries live at the end of the file.
	reverse(matched)
	if len(matched) > maxResults {
		matched = matched[:maxResults]
	}
	if matched == nil {
		matched = []Purchase{}
	}
	return matched, nil
}

func parseLine(line string) (Purchase, bool) {
	parts := strings.Split(line, "|")
	if len(parts) != fieldCount {
		return Purchase{}, false
	}

	quantity, err := strconv.Atoi(parts[4])
	if err != nil {
		return Purchase{}, false
	}
	unitPrice, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return Purchase{}, false
	}
	total, err := strconv.ParseFloat(parts[6], 64)
	if err != nil {
		return Purchase{}, false
	}

	return Purchase{
		Timestamp:        parts[0],
		CustomerUsername: parts[1],
		StoreUsername:    parts[2],
		ItemName:         parts[3],
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		TotalAmount:      total,
		CustomerEmail:    parts[7],
		StoreName:        parts[8],
		TransactionID:    parts[9],
	}, true
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func reverse(purchases []Purchase) {
	for i, j := 0, len(purchases)-1; i < j; i, j = i+1, j-1 {
		purchases[i], purchases[j] = purchases[j], purchases[i]
	}
}
