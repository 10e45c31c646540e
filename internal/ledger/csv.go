package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Ledger CSV ingestion
//
// Turns an exported transfer ledger into the transaction list the
// analysis core consumes. The header row decides the layout; common
// explorer export names are accepted for each column:
//
//   hash     tx_hash, txhash, transaction_hash
//   block    block_number, blockno
//   from     from_address, sender
//   to       to_address, recipient, receiver
//   value    amount
//   fee      tx_fee, transaction_fee, gas_fee
//   age      age_seconds, age_secs          (seconds ago; larger = older)
//   from_entity / to_entity                 (sender_type / recipient_type)
//   raw_value  value_raw, value_wei         (smallest unit, integer)
//   from_tx_count / to_tx_count
//
// from, to and value are required. Rows that cannot be parsed are
// skipped and reported, never fatal.

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("ledger: missing required column")

// Options tune parsing.
type Options struct {
	// ValueDecimals is the number of smallest units per base unit, as a
	// power of ten. It derives RawValue when the file has no raw column.
	ValueDecimals int32
}

// RowError describes one skipped row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is a parsed ledger.
type Result struct {
	Transactions []models.Transaction `json:"-"`
	Skipped      []RowError           `json:"skipped"`
}

type column int

const (
	colHash column = iota
	colBlock
	colFrom
	colTo
	colValue
	colFee
	colAge
	colFromEntity
	colToEntity
	colRawValue
	colFromTxCount
	colToTxCount
	numColumns
)

var aliases = map[string]column{
	"hash": colHash, "tx_hash": colHash, "txhash": colHash, "transaction_hash": colHash,
	"block": colBlock, "block_number": colBlock, "blockno": colBlock,
	"from": colFrom, "from_address": colFrom, "sender": colFrom,
	"to": colTo, "to_address": colTo, "recipient": colTo, "receiver": colTo,
	"value": colValue, "amount": colValue,
	"fee": colFee, "tx_fee": colFee, "transaction_fee": colFee, "gas_fee": colFee,
	"age": colAge, "age_seconds": colAge, "age_secs": colAge,
	"from_entity": colFromEntity, "from_entity_type": colFromEntity, "sender_type": colFromEntity,
	"to_entity": colToEntity, "to_entity_type": colToEntity, "recipient_type": colToEntity,
	"raw_value": colRawValue, "value_raw": colRawValue, "value_wei": colRawValue,
	"from_tx_count": colFromTxCount, "sender_tx_count": colFromTxCount,
	"to_tx_count": colToTxCount, "recipient_tx_count": colToTxCount,
}

var columnNames = [numColumns]string{"hash", "block", "from", "to", "value", "fee", "age",
	"from_entity", "to_entity", "raw_value", "from_tx_count", "to_tx_count"}

// ParseFile opens path and parses it.
func ParseFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse reads a ledger CSV. It fails only when the header is unusable;
// bad data rows are collected in Result.Skipped.
func Parse(r io.Reader, opts Options) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	res := &Result{Transactions: []models.Transaction{}, Skipped: []RowError{}}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped = append(res.Skipped, RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)

		tx, reason := parseRow(record, idx, line, opts)
		if reason != "" {
			res.Skipped = append(res.Skipped, RowError{Line: line, Reason: reason})
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		key := normalizeHeader(h)
		if c, ok := aliases[key]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	for _, c := range []column{colFrom, colTo, colValue} {
		if idx[c] < 0 {
			return idx, fmt.Errorf("%w: %s", ErrMissingColumn, columnNames[c])
		}
	}
	return idx, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_", "(", "", ")", "").Replace(h)
}

func parseRow(record []string, idx [numColumns]int, line int, opts Options) (models.Transaction, string) {
	field := func(c column) string {
		if idx[c] < 0 || idx[c] >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx[c]])
	}

	tx := models.Transaction{
		Hash:       field(colHash),
		From:       strings.ToLower(field(colFrom)),
		To:         strings.ToLower(field(colTo)),
		FromEntity: models.EntityType(strings.ToLower(field(colFromEntity))),
		ToEntity:   models.EntityType(strings.ToLower(field(colToEntity))),
	}
	if tx.From == "" || tx.To == "" {
		return tx, "missing sender or recipient"
	}
	if tx.Hash == "" {
		tx.Hash = fmt.Sprintf("row-%d", line)
	}

	value, err := decimal.NewFromString(field(colValue))
	if err != nil {
		return tx, fmt.Sprintf("invalid value %q", field(colValue))
	}
	if value.IsNegative() {
		return tx, "negative value"
	}
	tx.Value = value.InexactFloat64()

	fee := decimal.Zero
	if s := field(colFee); s != "" {
		if fee, err = decimal.NewFromString(s); err != nil || fee.IsNegative() {
			return tx, fmt.Sprintf("invalid fee %q", s)
		}
	}
	tx.Fee = fee.InexactFloat64()
	if value.IsPositive() {
		tx.FeeRatio = fee.Div(value).InexactFloat64()
	}

	if s := field(colRawValue); s != "" {
		raw, err := decimal.NewFromString(s)
		if err != nil {
			return tx, fmt.Sprintf("invalid raw value %q", s)
		}
		tx.RawValue = raw
	} else {
		tx.RawValue = value.Shift(opts.ValueDecimals).Truncate(0)
	}

	var reason string
	if tx.Age, reason = parseCount(field(colAge), "age"); reason != "" {
		return tx, reason
	}
	if tx.Block, reason = parseCount(field(colBlock), "block"); reason != "" {
		return tx, reason
	}
	fromCount, reason := parseCount(field(colFromTxCount), "sender tx count")
	if reason != "" {
		return tx, reason
	}
	toCount, reason := parseCount(field(colToTxCount), "recipient tx count")
	if reason != "" {
		return tx, reason
	}
	tx.FromTxCount = int(fromCount)
	tx.ToTxCount = int(toCount)

	return tx, ""
}

// parseCount reads an optional non-negative integer. Decimal input is
// truncated; thousands separators are ignored.
func parseCount(s, name string) (int64, string) {
	if s == "" {
		return 0, ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || d.IsNegative() {
		return 0, fmt.Sprintf("invalid %s %q", name, s)
	}
	return d.IntPart(), ""
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
