package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Ledger and item states.
const (
	LedgerStatusPending = "PENDING"
	LedgerStatusPaid    = "PAID"
)

// LedgerItemPreviousBalance is the id and type of the carry-forward line item.
const LedgerItemPreviousBalance = "PREVIOUS_BALANCE"

// FeeLedgerKey builds the document id of a student's ledger for a year.
func FeeLedgerKey(studentID, academicYear string) string {
	return studentID + "_" + academicYear
}

// LedgerItem is a single fee line. Extra holds stored keys written by other
// jobs; they are encoded back alongside the known fields.
type LedgerItem struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Amount     float64                `json:"amount"`
	PaidAmount float64                `json:"paidAmount"`
	Status     string                 `json:"status"`
	DueDate    string                 `json:"dueDate,omitempty"`
	Extra      map[string]interface{} `json:"-"`
}

var ledgerItemKeys = map[string]bool{
	"id": true, "type": true, "name": true, "amount": true,
	"paidAmount": true, "status": true, "dueDate": true,
}

// MarshalJSON encodes the known fields over Extra.
func (i LedgerItem) MarshalJSON() ([]byte, error) {
	type plain LedgerItem
	known, err := json.Marshal(plain(i))
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return known, nil
	}
	fields := make(map[string]interface{}, len(i.Extra)+len(ledgerItemKeys))
	for k, v := range i.Extra {
		fields[k] = v
	}
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// FeeLedger is a per-student per-year fee record.
type FeeLedger struct {
	StudentID    string       `json:"studentId"`
	AcademicYear string       `json:"academicYear"`
	TotalFee     float64      `json:"totalFee"`
	TotalPaid    float64      `json:"totalPaid"`
	Status       string       `json:"status"`
	Items        []LedgerItem `json:"items"`
	CreatedAt    *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
}

// Outstanding returns totalFee minus totalPaid without clamping.
func (l FeeLedger) Outstanding() float64 {
	return l.TotalFee - l.TotalPaid
}

// ItemIndex returns the position of the item with the id or -1.
func (l FeeLedger) ItemIndex(id string) int {
	for i, item := range l.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// DataIntegrityWarning records a stored value that had to be coerced.
type DataIntegrityWarning struct {
	Collection string `json:"collection"`
	DocumentID string `json:"documentId"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("%s/%s: non-numeric %s %q coerced to 0", w.Collection, w.DocumentID, w.Field, w.Value)
}

// CoerceAmount converts a stored fee field into a number. Missing values are 0.
// ok is false when the value was present but not numeric; the result is then 0.
func CoerceAmount(raw interface{}) (amount float64, ok bool) {
	switch v := raw.(type) {
	case nil:
		return 0, true
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FeeLedgerFromFields decodes a stored ledger, coercing every amount once.
// Each value that could not be read as a number yields a warning.
func FeeLedgerFromFields(id string, fields map[string]interface{}) (FeeLedger, []DataIntegrityWarning) {
	var warnings []DataIntegrityWarning
	amount := func(field string, raw interface{}) float64 {
		value, ok := CoerceAmount(raw)
		if !ok {
			warnings = append(warnings, DataIntegrityWarning{
				Collection: "fee_ledgers",
				DocumentID: id,
				Field:      field,
				Value:      fmt.Sprint(raw),
			})
		}
		return value
	}

	ledger := FeeLedger{
		StudentID:    text(fields["studentId"]),
		AcademicYear: text(fields["academicYear"]),
		TotalFee:     amount("totalFee", fields["totalFee"]),
		TotalPaid:    amount("totalPaid", fields["totalPaid"]),
		Status:       text(fields["status"]),
		CreatedAt:    timestamp(fields["createdAt"]),
		UpdatedAt:    timestamp(fields["updatedAt"]),
	}

	rawItems, _ := fields["items"].([]interface{})
	for i, rawItem := range rawItems {
		itemFields, isMap := rawItem.(map[string]interface{})
		if !isMap {
			continue
		}
		prefix := fmt.Sprintf("items[%d].", i)
		ledger.Items = append(ledger.Items, LedgerItem{
			ID:         text(itemFields["id"]),
			Type:       text(itemFields["type"]),
			Name:       text(itemFields["name"]),
			Amount:     amount(prefix+"amount", itemFields["amount"]),
			PaidAmount: amount(prefix+"paidAmount", itemFields["paidAmount"]),
			Status:     text(itemFields["status"]),
			DueDate:    text(itemFields["dueDate"]),
			Extra:      unknownItemFields(itemFields),
		})
	}

	return ledger, warnings
}

func unknownItemFields(fields map[string]interface{}) map[string]interface{} {
	var extra map[string]interface{}
	for k, v := range fields {
		if ledgerItemKeys[k] {
			continue
		}
		if extra == nil {
			extra = map[string]interface{}{}
		}
		extra[k] = v
	}
	return extra
}

func text(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func timestamp(raw interface{}) *time.Time {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
